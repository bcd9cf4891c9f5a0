package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeCycleStarted        = "cycle.started"
	EventTypeTaskProgressUpdated = "task.progress_updated"
	EventTypeAssessmentSubmitted = "assessment.submitted"
	EventTypeFeedbackCreated     = "feedback.created"
)

type CycleStartedEvent struct {
	BaseEvent
	CycleID         int64 `json:"cycle_id"`
	Participants    int   `json:"participants"`
	SelfAssessments int   `json:"self_assessments"`
	PeerReviews     int   `json:"peer_reviews"`
	ManagerReviews  int   `json:"manager_reviews"`
	StartedBy       int64 `json:"started_by"`
	ExcludedUsers   int   `json:"excluded_users"`
}

func NewCycleStartedEvent(cycleID, startedBy int64, participants, selfAssessments, peerReviews, managerReviews, excluded int) *CycleStartedEvent {
	return &CycleStartedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCycleStarted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"cycle_id":         cycleID,
				"started_by":       startedBy,
				"participants":     participants,
				"self_assessments": selfAssessments,
				"peer_reviews":     peerReviews,
				"manager_reviews":  managerReviews,
				"excluded_users":   excluded,
			},
		},
		CycleID:         cycleID,
		Participants:    participants,
		SelfAssessments: selfAssessments,
		PeerReviews:     peerReviews,
		ManagerReviews:  managerReviews,
		StartedBy:       startedBy,
		ExcludedUsers:   excluded,
	}
}

type TaskProgressUpdatedEvent struct {
	BaseEvent
	TaskID           int64   `json:"task_id"`
	GoalID           int64   `json:"goal_id"`
	ObjectiveID      int64   `json:"objective_id"`
	PreviousProgress float64 `json:"previous_progress"`
	NewProgress      float64 `json:"new_progress"`
	UpdatedBy        int64   `json:"updated_by"`
}

func NewTaskProgressUpdatedEvent(taskID, goalID, objectiveID, updatedBy int64, previous, current float64) *TaskProgressUpdatedEvent {
	return &TaskProgressUpdatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTaskProgressUpdated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"task_id":           taskID,
				"goal_id":           goalID,
				"objective_id":      objectiveID,
				"previous_progress": previous,
				"new_progress":      current,
				"updated_by":        updatedBy,
			},
		},
		TaskID:           taskID,
		GoalID:           goalID,
		ObjectiveID:      objectiveID,
		PreviousProgress: previous,
		NewProgress:      current,
		UpdatedBy:        updatedBy,
	}
}

type AssessmentSubmittedEvent struct {
	BaseEvent
	AssessmentType string `json:"assessment_type"`
	AssessmentID   int64  `json:"assessment_id"`
	CycleID        int64  `json:"cycle_id"`
	SubmittedBy    int64  `json:"submitted_by"`
}

func NewAssessmentSubmittedEvent(assessmentType string, assessmentID, cycleID, submittedBy int64) *AssessmentSubmittedEvent {
	return &AssessmentSubmittedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAssessmentSubmitted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"assessment_type": assessmentType,
				"assessment_id":   assessmentID,
				"cycle_id":        cycleID,
				"submitted_by":    submittedBy,
			},
		},
		AssessmentType: assessmentType,
		AssessmentID:   assessmentID,
		CycleID:        cycleID,
		SubmittedBy:    submittedBy,
	}
}

type FeedbackCreatedEvent struct {
	BaseEvent
	FeedbackID int64  `json:"feedback_id"`
	FromUserID int64  `json:"from_user_id"`
	ToUserID   int64  `json:"to_user_id"`
	Category   string `json:"category"`
}

func NewFeedbackCreatedEvent(feedbackID, fromUserID, toUserID int64, category string) *FeedbackCreatedEvent {
	return &FeedbackCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeFeedbackCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"feedback_id":  feedbackID,
				"from_user_id": fromUserID,
				"to_user_id":   toUserID,
				"category":     category,
			},
		},
		FeedbackID: feedbackID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Category:   category,
	}
}
