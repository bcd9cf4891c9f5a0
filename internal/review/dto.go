package review

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

type CreateCycleDTO struct {
	Name                string    `json:"name"`
	ReviewType          string    `json:"review_type"`
	SelfAssessmentStart time.Time `json:"self_assessment_start"`
	SelfAssessmentEnd   time.Time `json:"self_assessment_end"`
	PeerReviewStart     time.Time `json:"peer_review_start"`
	PeerReviewEnd       time.Time `json:"peer_review_end"`
	ManagerReviewStart  time.Time `json:"manager_review_start"`
	ManagerReviewEnd    time.Time `json:"manager_review_end"`
}

func (d CreateCycleDTO) Validate() error {
	if d.Name == "" {
		return errors.New("name is required")
	}
	if !ValidCycleType(d.ReviewType) {
		return errors.New("review_type must be quarterly, semi_annual or annual")
	}
	windows := [][2]time.Time{
		{d.SelfAssessmentStart, d.SelfAssessmentEnd},
		{d.PeerReviewStart, d.PeerReviewEnd},
		{d.ManagerReviewStart, d.ManagerReviewEnd},
	}
	for _, w := range windows {
		if w[0].IsZero() || w[1].IsZero() {
			return errors.New("all phase windows are required")
		}
		if w[1].Before(w[0]) {
			return errors.New("phase window end must not precede its start")
		}
	}
	return nil
}

type UpdateCycleDTO struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
}

func (d UpdateCycleDTO) Validate() error {
	if d.Name != nil && *d.Name == "" {
		return errors.New("name cannot be empty")
	}
	if d.Status != nil {
		switch *d.Status {
		case CycleStatusDraft, CycleStatusActive, CycleStatusCompleted:
		default:
			return errors.New("invalid cycle status")
		}
	}
	return nil
}

// StartSettings is a closed struct: the start request's settings object may
// only contain these four keys. Anything else fails the whole request, so a
// typo like "exclude_probationary_employees" cannot silently change the
// population.
type StartSettings struct {
	ExcludeProbationary   bool `json:"exclude_probationary"`
	ExcludeContractors    bool `json:"exclude_contractors"`
	AutoAssignPeerReviews bool `json:"auto_assign_peer_reviews"`
	PeerReviewAnonymous   bool `json:"peer_review_anonymous"`
}

func DefaultStartSettings() StartSettings {
	return StartSettings{
		ExcludeProbationary:   true,
		ExcludeContractors:    false,
		AutoAssignPeerReviews: true,
		PeerReviewAnonymous:   true,
	}
}

type StartCycleDTO struct {
	DepartmentIDs []int64         `json:"department_ids"`
	Settings      json.RawMessage `json:"settings"`
}

// ParseSettings decodes the raw settings into the closed struct, starting from
// the defaults so omitted keys keep their default values.
func (d StartCycleDTO) ParseSettings() (StartSettings, error) {
	settings := DefaultStartSettings()
	if len(d.Settings) == 0 {
		return settings, nil
	}

	dec := json.NewDecoder(bytes.NewReader(d.Settings))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&settings); err != nil {
		return settings, errors.New("invalid settings: " + err.Error())
	}
	return settings, nil
}

func (d StartCycleDTO) Validate() error {
	if len(d.DepartmentIDs) == 0 {
		return errors.New("department_ids is required")
	}
	return nil
}

// StartResult reports what the fan-out created. Existing rows found by
// get-or-create are not counted.
type StartResult struct {
	CycleID         int64 `json:"cycle_id"`
	Participants    int   `json:"participants_created"`
	SelfAssessments int   `json:"self_assessments_created"`
	PeerReviews     int   `json:"peer_reviews_created"`
	ManagerReviews  int   `json:"manager_reviews_created"`
	PopulationSize  int   `json:"population_size"`
	ExcludedUsers   int   `json:"excluded_users"`
}

type GoalAssessmentDTO struct {
	GoalID     int64  `json:"goal_id"`
	SelfRating int    `json:"self_rating"`
	Comments   string `json:"comments"`
}

type UpdateSelfAssessmentDTO struct {
	TechnicalRating            *int                `json:"technical_rating"`
	TechnicalJustification     *string             `json:"technical_justification"`
	CommunicationRating        *int                `json:"communication_rating"`
	CommunicationJustification *string             `json:"communication_justification"`
	LeadershipRating           *int                `json:"leadership_rating"`
	LeadershipJustification    *string             `json:"leadership_justification"`
	GoalRating                 *int                `json:"goal_rating"`
	GoalJustification          *string             `json:"goal_justification"`
	OverallComments            *string             `json:"overall_comments"`
	GoalAssessments            []GoalAssessmentDTO `json:"goal_assessments"`
}

func (d UpdateSelfAssessmentDTO) Validate() error {
	for _, r := range []*int{d.TechnicalRating, d.CommunicationRating, d.LeadershipRating, d.GoalRating} {
		if r != nil && !ValidRating(*r) {
			return errors.New("ratings must be between 1 and 5")
		}
	}
	for _, ga := range d.GoalAssessments {
		if !ValidRating(ga.SelfRating) {
			return errors.New("goal self_rating must be between 1 and 5")
		}
	}
	return nil
}

type CreatePeerReviewDTO struct {
	RevieweeID  int64 `json:"reviewee_id"`
	IsAnonymous bool  `json:"is_anonymous"`
}

func (d CreatePeerReviewDTO) Validate() error {
	if d.RevieweeID <= 0 {
		return errors.New("reviewee_id is required")
	}
	return nil
}

type SubmitPeerReviewDTO struct {
	CollaborationRating int    `json:"collaboration_rating"`
	CommunicationRating int    `json:"communication_rating"`
	Strengths           string `json:"strengths"`
	AreasForImprovement string `json:"areas_for_improvement"`
}

func (d SubmitPeerReviewDTO) Validate() error {
	if !ValidRating(d.CollaborationRating) || !ValidRating(d.CommunicationRating) {
		return errors.New("ratings must be between 1 and 5")
	}
	return nil
}

type CreateManagerReviewDTO struct {
	EmployeeID int64 `json:"employee_id"`
}

func (d CreateManagerReviewDTO) Validate() error {
	if d.EmployeeID <= 0 {
		return errors.New("employee_id is required")
	}
	return nil
}

type GoalManagerAssessmentDTO struct {
	GoalID        int64  `json:"goal_id"`
	ManagerRating int    `json:"manager_rating"`
	Comments      string `json:"comments"`
}

type SubmitManagerReviewDTO struct {
	OverallRating         int                        `json:"overall_rating"`
	TechnicalRating       int                        `json:"technical_rating"`
	CommunicationRating   int                        `json:"communication_rating"`
	LeadershipRating      int                        `json:"leadership_rating"`
	GoalAchievementRating int                        `json:"goal_achievement_rating"`
	Strengths             string                     `json:"strengths"`
	AreasForImprovement   string                     `json:"areas_for_improvement"`
	AchievementsSummary   string                     `json:"achievements_summary"`
	GoalAssessments       []GoalManagerAssessmentDTO `json:"goal_assessments"`
}

func (d SubmitManagerReviewDTO) Validate() error {
	ratings := []int{d.OverallRating, d.TechnicalRating, d.CommunicationRating, d.LeadershipRating, d.GoalAchievementRating}
	for _, r := range ratings {
		if !ValidRating(r) {
			return errors.New("ratings must be between 1 and 5")
		}
	}
	for _, ga := range d.GoalAssessments {
		if !ValidRating(ga.ManagerRating) {
			return errors.New("goal manager_rating must be between 1 and 5")
		}
	}
	return nil
}

type CreateUpwardReviewDTO struct {
	ManagerID   int64 `json:"manager_id"`
	IsAnonymous bool  `json:"is_anonymous"`
}

func (d CreateUpwardReviewDTO) Validate() error {
	if d.ManagerID <= 0 {
		return errors.New("manager_id is required")
	}
	return nil
}

type SubmitUpwardReviewDTO struct {
	LeadershipRating    int    `json:"leadership_rating"`
	CommunicationRating int    `json:"communication_rating"`
	SupportRating       int    `json:"support_rating"`
	Comments            string `json:"comments"`
}

func (d SubmitUpwardReviewDTO) Validate() error {
	if !ValidRating(d.LeadershipRating) || !ValidRating(d.CommunicationRating) || !ValidRating(d.SupportRating) {
		return errors.New("ratings must be between 1 and 5")
	}
	return nil
}

type ScheduleMeetingDTO struct {
	EmployeeID  int64     `json:"employee_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

func (d ScheduleMeetingDTO) Validate() error {
	if d.EmployeeID <= 0 {
		return errors.New("employee_id is required")
	}
	if d.ScheduledAt.IsZero() {
		return errors.New("scheduled_at is required")
	}
	return nil
}

type CompleteMeetingDTO struct {
	Notes       string   `json:"notes"`
	ActionItems []string `json:"action_items"`
}

type AddParticipantDTO struct {
	UserID int64 `json:"user_id"`
}

func (d AddParticipantDTO) Validate() error {
	if d.UserID <= 0 {
		return errors.New("user_id is required")
	}
	return nil
}

// CycleProgress is the per-phase completion summary for a cycle.
type CycleProgress struct {
	CycleID              int64   `json:"cycle_id"`
	CurrentPhase         string  `json:"current_phase"`
	Participants         int64   `json:"participants"`
	SelfAssessmentsDone  int64   `json:"self_assessments_completed"`
	SelfAssessmentsTotal int64   `json:"self_assessments_total"`
	PeerReviewsDone      int64   `json:"peer_reviews_completed"`
	PeerReviewsTotal     int64   `json:"peer_reviews_total"`
	ManagerReviewsDone   int64   `json:"manager_reviews_completed"`
	ManagerReviewsTotal  int64   `json:"manager_reviews_total"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

type CycleResponse struct {
	ReviewCycle
	CurrentPhase string `json:"current_phase"`
}
