package review

import (
	"errors"
	"time"
)

// Cycle statuses.
const (
	CycleStatusDraft     = "draft"
	CycleStatusActive    = "active"
	CycleStatusCompleted = "completed"
)

// Cycle types.
const (
	TypeQuarterly  = "quarterly"
	TypeSemiAnnual = "semi_annual"
	TypeAnnual     = "annual"
)

// Phases reported by CurrentPhase for an active cycle.
const (
	PhasePending       = "pending"
	PhaseSelfReview    = "self_assessment"
	PhasePeerReview    = "peer_review"
	PhaseManagerReview = "manager_review"
	PhaseWrapUp        = "wrap_up"
)

// Record statuses shared by all four review kinds.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Meeting statuses.
const (
	MeetingScheduled = "scheduled"
	MeetingCompleted = "completed"
	MeetingCancelled = "cancelled"
)

// ReviewCycle holds three phase windows. The current phase is derived on every
// read, never stored; clock skew therefore cannot strand a cycle in a stale
// phase.
type ReviewCycle struct {
	ID                   int64     `json:"id" gorm:"primaryKey"`
	Name                 string    `json:"name" gorm:"not null"`
	ReviewType           string    `json:"review_type" gorm:"column:review_type;not null"`
	Status               string    `json:"status" gorm:"not null;default:draft"`
	SelfAssessmentStart  time.Time `json:"self_assessment_start" gorm:"column:self_assessment_start"`
	SelfAssessmentEnd    time.Time `json:"self_assessment_end" gorm:"column:self_assessment_end"`
	PeerReviewStart      time.Time `json:"peer_review_start" gorm:"column:peer_review_start"`
	PeerReviewEnd        time.Time `json:"peer_review_end" gorm:"column:peer_review_end"`
	ManagerReviewStart   time.Time `json:"manager_review_start" gorm:"column:manager_review_start"`
	ManagerReviewEnd     time.Time `json:"manager_review_end" gorm:"column:manager_review_end"`
	CreatedBy            int64     `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt            time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (ReviewCycle) TableName() string {
	return "review_cycles"
}

// CurrentPhase derives the phase from the wall clock. The windows are checked
// in order, so when windows overlap the earliest one wins. Outside every
// window the cycle is pending until the last window has passed, then wrap_up.
// Non-active cycles simply report their status.
func (c *ReviewCycle) CurrentPhase(now time.Time) string {
	if c.Status != CycleStatusActive {
		return c.Status
	}

	windows := []struct {
		phase      string
		start, end time.Time
	}{
		{PhaseSelfReview, c.SelfAssessmentStart, c.SelfAssessmentEnd},
		{PhasePeerReview, c.PeerReviewStart, c.PeerReviewEnd},
		{PhaseManagerReview, c.ManagerReviewStart, c.ManagerReviewEnd},
	}

	for _, w := range windows {
		if !now.Before(w.start) && !now.After(w.end) {
			return w.phase
		}
	}

	lastEnd := c.SelfAssessmentEnd
	for _, w := range windows {
		if w.end.After(lastEnd) {
			lastEnd = w.end
		}
	}
	if now.After(lastEnd) {
		return PhaseWrapUp
	}
	return PhasePending
}

// ReviewParticipant is unique per cycle and user; the start fan-out relies on
// that to stay idempotent.
type ReviewParticipant struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	CycleID   int64     `json:"cycle_id" gorm:"column:cycle_id;not null;uniqueIndex:idx_cycle_participant"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;not null;uniqueIndex:idx_cycle_participant"`
	IsActive  bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
}

func (ReviewParticipant) TableName() string {
	return "review_participants"
}

type SelfAssessment struct {
	ID                         int64      `json:"id" gorm:"primaryKey"`
	CycleID                    int64      `json:"cycle_id" gorm:"column:cycle_id;not null;uniqueIndex:idx_cycle_self"`
	UserID                     int64      `json:"user_id" gorm:"column:user_id;not null;uniqueIndex:idx_cycle_self"`
	Status                     string     `json:"status" gorm:"not null;default:pending"`
	TechnicalRating            *int       `json:"technical_rating" gorm:"column:technical_rating"`
	TechnicalJustification     string     `json:"technical_justification" gorm:"column:technical_justification"`
	CommunicationRating        *int       `json:"communication_rating" gorm:"column:communication_rating"`
	CommunicationJustification string     `json:"communication_justification" gorm:"column:communication_justification"`
	LeadershipRating           *int       `json:"leadership_rating" gorm:"column:leadership_rating"`
	LeadershipJustification    string     `json:"leadership_justification" gorm:"column:leadership_justification"`
	GoalRating                 *int       `json:"goal_rating" gorm:"column:goal_rating"`
	GoalJustification          string     `json:"goal_justification" gorm:"column:goal_justification"`
	OverallComments            string     `json:"overall_comments" gorm:"column:overall_comments"`
	SubmittedAt                *time.Time `json:"submitted_at" gorm:"column:submitted_at"`
	CreatedAt                  time.Time  `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt                  time.Time  `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (SelfAssessment) TableName() string {
	return "self_assessments"
}

// GoalAssessment is a nested self-rating for one goal inside a self
// assessment.
type GoalAssessment struct {
	ID               int64  `json:"id" gorm:"primaryKey"`
	SelfAssessmentID int64  `json:"self_assessment_id" gorm:"column:self_assessment_id;not null"`
	GoalID           int64  `json:"goal_id" gorm:"column:goal_id;not null"`
	SelfRating       int    `json:"self_rating" gorm:"column:self_rating"`
	Comments         string `json:"comments"`
}

func (GoalAssessment) TableName() string {
	return "goal_assessments"
}

type PeerReview struct {
	ID                  int64      `json:"id" gorm:"primaryKey"`
	CycleID             int64      `json:"cycle_id" gorm:"column:cycle_id;not null;uniqueIndex:idx_cycle_peer"`
	ReviewerID          int64      `json:"reviewer_id" gorm:"column:reviewer_id;not null;uniqueIndex:idx_cycle_peer"`
	RevieweeID          int64      `json:"reviewee_id" gorm:"column:reviewee_id;not null;uniqueIndex:idx_cycle_peer"`
	IsAnonymous         bool       `json:"is_anonymous" gorm:"column:is_anonymous;default:true"`
	Status              string     `json:"status" gorm:"not null;default:pending"`
	CollaborationRating *int       `json:"collaboration_rating" gorm:"column:collaboration_rating"`
	CommunicationRating *int       `json:"communication_rating" gorm:"column:communication_rating"`
	Strengths           string     `json:"strengths"`
	AreasForImprovement string     `json:"areas_for_improvement" gorm:"column:areas_for_improvement"`
	SubmittedAt         *time.Time `json:"submitted_at" gorm:"column:submitted_at"`
	CreatedAt           time.Time  `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time  `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (PeerReview) TableName() string {
	return "peer_reviews"
}

type ManagerReview struct {
	ID                    int64      `json:"id" gorm:"primaryKey"`
	CycleID               int64      `json:"cycle_id" gorm:"column:cycle_id;not null;uniqueIndex:idx_cycle_manager"`
	ManagerID             int64      `json:"manager_id" gorm:"column:manager_id;not null;uniqueIndex:idx_cycle_manager"`
	EmployeeID            int64      `json:"employee_id" gorm:"column:employee_id;not null;uniqueIndex:idx_cycle_manager"`
	Status                string     `json:"status" gorm:"not null;default:pending"`
	OverallRating         *int       `json:"overall_rating" gorm:"column:overall_rating"`
	TechnicalRating       *int       `json:"technical_rating" gorm:"column:technical_rating"`
	CommunicationRating   *int       `json:"communication_rating" gorm:"column:communication_rating"`
	LeadershipRating      *int       `json:"leadership_rating" gorm:"column:leadership_rating"`
	GoalAchievementRating *int       `json:"goal_achievement_rating" gorm:"column:goal_achievement_rating"`
	Strengths             string     `json:"strengths"`
	AreasForImprovement   string     `json:"areas_for_improvement" gorm:"column:areas_for_improvement"`
	AchievementsSummary   string     `json:"achievements_summary" gorm:"column:achievements_summary"`
	SubmittedAt           *time.Time `json:"submitted_at" gorm:"column:submitted_at"`
	CreatedAt             time.Time  `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time  `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (ManagerReview) TableName() string {
	return "manager_reviews"
}

type GoalManagerAssessment struct {
	ID              int64  `json:"id" gorm:"primaryKey"`
	ManagerReviewID int64  `json:"manager_review_id" gorm:"column:manager_review_id;not null"`
	GoalID          int64  `json:"goal_id" gorm:"column:goal_id;not null"`
	ManagerRating   int    `json:"manager_rating" gorm:"column:manager_rating"`
	Comments        string `json:"comments"`
}

func (GoalManagerAssessment) TableName() string {
	return "goal_manager_assessments"
}

type UpwardReview struct {
	ID                  int64      `json:"id" gorm:"primaryKey"`
	CycleID             int64      `json:"cycle_id" gorm:"column:cycle_id;not null;uniqueIndex:idx_cycle_upward"`
	ReviewerID          int64      `json:"reviewer_id" gorm:"column:reviewer_id;not null;uniqueIndex:idx_cycle_upward"`
	ManagerID           int64      `json:"manager_id" gorm:"column:manager_id;not null;uniqueIndex:idx_cycle_upward"`
	Status              string     `json:"status" gorm:"not null;default:pending"`
	LeadershipRating    *int       `json:"leadership_rating" gorm:"column:leadership_rating"`
	CommunicationRating *int       `json:"communication_rating" gorm:"column:communication_rating"`
	SupportRating       *int       `json:"support_rating" gorm:"column:support_rating"`
	Comments            string     `json:"comments"`
	IsAnonymous         bool       `json:"is_anonymous" gorm:"column:is_anonymous;default:true"`
	SubmittedAt         *time.Time `json:"submitted_at" gorm:"column:submitted_at"`
	CreatedAt           time.Time  `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time  `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (UpwardReview) TableName() string {
	return "upward_reviews"
}

type ReviewMeeting struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	CycleID     int64     `json:"cycle_id" gorm:"column:cycle_id;not null"`
	ManagerID   int64     `json:"manager_id" gorm:"column:manager_id;not null"`
	EmployeeID  int64     `json:"employee_id" gorm:"column:employee_id;not null"`
	ScheduledAt time.Time `json:"scheduled_at" gorm:"column:scheduled_at"`
	Status      string    `json:"status" gorm:"not null;default:scheduled"`
	Notes       string    `json:"notes"`
	ActionItems []string  `json:"action_items" gorm:"column:action_items;serializer:json"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (ReviewMeeting) TableName() string {
	return "review_meetings"
}

func ValidCycleType(t string) bool {
	switch t {
	case TypeQuarterly, TypeSemiAnnual, TypeAnnual:
		return true
	}
	return false
}

// ValidRating bounds every numeric rating in the review domain.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}

var (
	ErrCycleNotFound  = errors.New("review cycle not found")
	ErrRecordNotFound = errors.New("review record not found")
	ErrCycleNotDraft  = errors.New("cycle is not in draft status")
)
