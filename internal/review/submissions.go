package review

import (
	"context"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/core/events"
	"github.com/talenthub/performance-management/internal/identity"
)

// errAlreadySubmitted is the uniform one-shot violation for all four review
// kinds. Re-submitting is never silently idempotent.
func errAlreadySubmitted() error {
	return internal.NewConflictError("already submitted", internal.ErrCodeAlreadySubmitted)
}

// SelfAssessmentResponse bundles an assessment with its nested goal rows.
type SelfAssessmentResponse struct {
	SelfAssessment
	GoalAssessments []GoalAssessment `json:"goal_assessments"`
}

func (s *Service) GetSelfAssessment(actor *identity.User, cycleID, userID int64) (*SelfAssessmentResponse, error) {
	sa, err := s.repo.GetSelfAssessment(cycleID, userID)
	if err != nil {
		return nil, internal.NewNotFoundError("self assessment not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if err := s.canViewAssessmentOf(actor, sa.UserID); err != nil {
		return nil, err
	}
	goals, err := s.repo.GoalAssessmentsFor(sa.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load goal assessments", err)
	}
	return &SelfAssessmentResponse{SelfAssessment: *sa, GoalAssessments: goals}, nil
}

func (s *Service) UpdateSelfAssessment(actor *identity.User, cycleID int64, dto UpdateSelfAssessmentDTO) (*SelfAssessment, error) {
	sa, err := s.repo.GetSelfAssessment(cycleID, actor.ID)
	if err != nil {
		return nil, internal.NewNotFoundError("self assessment not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if sa.Status == StatusCompleted {
		return nil, errAlreadySubmitted()
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	applySelfAssessment(sa, dto)
	sa.Status = StatusInProgress
	if err := s.repo.UpdateSelfAssessment(sa); err != nil {
		return nil, internal.NewInternalError("failed to update self assessment", err)
	}

	if dto.GoalAssessments != nil {
		rows := make([]GoalAssessment, 0, len(dto.GoalAssessments))
		for _, ga := range dto.GoalAssessments {
			rows = append(rows, GoalAssessment{
				SelfAssessmentID: sa.ID,
				GoalID:           ga.GoalID,
				SelfRating:       ga.SelfRating,
				Comments:         ga.Comments,
			})
		}
		if err := s.repo.ReplaceGoalAssessments(sa.ID, rows); err != nil {
			return nil, internal.NewInternalError("failed to save goal assessments", err)
		}
	}
	return sa, nil
}

func (s *Service) SubmitSelfAssessment(ctx context.Context, actor *identity.User, cycleID int64) (*SelfAssessment, error) {
	sa, err := s.repo.GetSelfAssessment(cycleID, actor.ID)
	if err != nil {
		return nil, internal.NewNotFoundError("self assessment not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if sa.Status == StatusCompleted {
		return nil, errAlreadySubmitted()
	}
	for _, r := range []*int{sa.TechnicalRating, sa.CommunicationRating, sa.LeadershipRating, sa.GoalRating} {
		if r == nil {
			return nil, internal.NewValidationError("all four ratings are required before submitting", internal.ErrCodeValidationFailed)
		}
	}

	now := s.now()
	sa.Status = StatusCompleted
	sa.SubmittedAt = &now
	if err := s.repo.UpdateSelfAssessment(sa); err != nil {
		return nil, internal.NewInternalError("failed to submit self assessment", err)
	}
	s.publishSubmission(ctx, "self_assessment", sa.ID, cycleID, actor.ID)
	return sa, nil
}

// CreatePeerReview creates an ad-hoc peer review with the actor as reviewer.
// Reviewing yourself is rejected outright.
func (s *Service) CreatePeerReview(actor *identity.User, cycleID int64, dto CreatePeerReviewDTO) (*PeerReview, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if dto.RevieweeID == actor.ID {
		return nil, internal.NewValidationError("cannot peer review yourself", internal.ErrCodeSelfReview)
	}
	if _, err := s.repo.GetCycle(cycleID); err != nil {
		return nil, internal.NewNotFoundError("review cycle not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if _, err := s.dir.UserByID(dto.RevieweeID); err != nil {
		return nil, internal.NewNotFoundError("reviewee not found", internal.ErrCodeUserNotFound).WithCause(err)
	}

	pr := &PeerReview{
		CycleID:     cycleID,
		ReviewerID:  actor.ID,
		RevieweeID:  dto.RevieweeID,
		IsAnonymous: dto.IsAnonymous,
		Status:      StatusPending,
	}
	if _, err := s.repo.CreatePeerReview(pr); err != nil {
		return nil, internal.NewInternalError("failed to create peer review", err)
	}
	return pr, nil
}

// ListPeerReviews returns the actor's assigned reviews; HR admins see the
// whole cycle.
func (s *Service) ListPeerReviews(actor *identity.User, cycleID int64) ([]*PeerReview, error) {
	if actor.IsHRAdmin() {
		return s.repo.PeerReviewsForCycle(cycleID)
	}
	return s.repo.PeerReviewsForReviewer(cycleID, actor.ID)
}

func (s *Service) GetPeerReview(actor *identity.User, reviewID int64) (*PeerReview, error) {
	pr, err := s.repo.GetPeerReview(reviewID)
	if err != nil {
		return nil, internal.NewNotFoundError("peer review not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if !actor.IsHRAdmin() && actor.ID != pr.ReviewerID {
		// The reviewee may read a submitted review, with the reviewer
		// hidden when anonymous.
		if actor.ID == pr.RevieweeID && pr.Status == StatusCompleted {
			if pr.IsAnonymous {
				redacted := *pr
				redacted.ReviewerID = 0
				return &redacted, nil
			}
			return pr, nil
		}
		return nil, internal.NewForbiddenError("not allowed to view this peer review", internal.ErrCodeForbidden)
	}
	return pr, nil
}

func (s *Service) SubmitPeerReview(ctx context.Context, actor *identity.User, reviewID int64, dto SubmitPeerReviewDTO) (*PeerReview, error) {
	pr, err := s.repo.GetPeerReview(reviewID)
	if err != nil {
		return nil, internal.NewNotFoundError("peer review not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if actor.ID != pr.ReviewerID {
		return nil, internal.NewForbiddenError("only the assigned reviewer can submit", internal.ErrCodeForbidden)
	}
	if pr.Status == StatusCompleted {
		return nil, errAlreadySubmitted()
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	now := s.now()
	pr.CollaborationRating = &dto.CollaborationRating
	pr.CommunicationRating = &dto.CommunicationRating
	pr.Strengths = dto.Strengths
	pr.AreasForImprovement = dto.AreasForImprovement
	pr.Status = StatusCompleted
	pr.SubmittedAt = &now
	if err := s.repo.UpdatePeerReview(pr); err != nil {
		return nil, internal.NewInternalError("failed to submit peer review", err)
	}
	s.publishSubmission(ctx, "peer_review", pr.ID, pr.CycleID, actor.ID)
	return pr, nil
}

// CreateManagerReview requires the employee to be a direct report of the
// actor.
func (s *Service) CreateManagerReview(actor *identity.User, cycleID int64, dto CreateManagerReviewDTO) (*ManagerReview, error) {
	if !actor.IsManager() && !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only managers can create manager reviews", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if _, err := s.repo.GetCycle(cycleID); err != nil {
		return nil, internal.NewNotFoundError("review cycle not found", internal.ErrCodeNotFound).WithCause(err)
	}

	isReport, err := s.dir.IsDirectReport(actor.ID, dto.EmployeeID)
	if err != nil {
		return nil, internal.NewNotFoundError("employee not found", internal.ErrCodeUserNotFound).WithCause(err)
	}
	if !isReport {
		return nil, internal.NewValidationError("employee is not a direct report", internal.ErrCodeNotDirectReport)
	}

	mr := &ManagerReview{
		CycleID:    cycleID,
		ManagerID:  actor.ID,
		EmployeeID: dto.EmployeeID,
		Status:     StatusPending,
	}
	if _, err := s.repo.CreateManagerReview(mr); err != nil {
		return nil, internal.NewInternalError("failed to create manager review", err)
	}
	return mr, nil
}

func (s *Service) ListManagerReviews(actor *identity.User, cycleID int64) ([]*ManagerReview, error) {
	if !actor.IsManager() && !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("not allowed to list manager reviews", internal.ErrCodeForbidden)
	}
	return s.repo.ManagerReviewsForManager(cycleID, actor.ID)
}

func (s *Service) GetManagerReview(actor *identity.User, reviewID int64) (*ManagerReview, error) {
	mr, err := s.repo.GetManagerReview(reviewID)
	if err != nil {
		return nil, internal.NewNotFoundError("manager review not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if !actor.IsHRAdmin() && actor.ID != mr.ManagerID {
		if actor.ID == mr.EmployeeID && mr.Status == StatusCompleted {
			return mr, nil
		}
		return nil, internal.NewForbiddenError("not allowed to view this manager review", internal.ErrCodeForbidden)
	}
	return mr, nil
}

func (s *Service) SubmitManagerReview(ctx context.Context, actor *identity.User, reviewID int64, dto SubmitManagerReviewDTO) (*ManagerReview, error) {
	mr, err := s.repo.GetManagerReview(reviewID)
	if err != nil {
		return nil, internal.NewNotFoundError("manager review not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if actor.ID != mr.ManagerID {
		return nil, internal.NewForbiddenError("only the reviewing manager can submit", internal.ErrCodeForbidden)
	}
	if mr.Status == StatusCompleted {
		return nil, errAlreadySubmitted()
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	now := s.now()
	mr.OverallRating = &dto.OverallRating
	mr.TechnicalRating = &dto.TechnicalRating
	mr.CommunicationRating = &dto.CommunicationRating
	mr.LeadershipRating = &dto.LeadershipRating
	mr.GoalAchievementRating = &dto.GoalAchievementRating
	mr.Strengths = dto.Strengths
	mr.AreasForImprovement = dto.AreasForImprovement
	mr.AchievementsSummary = dto.AchievementsSummary
	mr.Status = StatusCompleted
	mr.SubmittedAt = &now
	if err := s.repo.UpdateManagerReview(mr); err != nil {
		return nil, internal.NewInternalError("failed to submit manager review", err)
	}

	if dto.GoalAssessments != nil {
		rows := make([]GoalManagerAssessment, 0, len(dto.GoalAssessments))
		for _, ga := range dto.GoalAssessments {
			rows = append(rows, GoalManagerAssessment{
				ManagerReviewID: mr.ID,
				GoalID:          ga.GoalID,
				ManagerRating:   ga.ManagerRating,
				Comments:        ga.Comments,
			})
		}
		if err := s.repo.ReplaceGoalManagerAssessments(mr.ID, rows); err != nil {
			return nil, internal.NewInternalError("failed to save goal assessments", err)
		}
	}
	s.publishSubmission(ctx, "manager_review", mr.ID, mr.CycleID, actor.ID)
	return mr, nil
}

// CreateUpwardReview lets a report review their own manager, nobody else's.
func (s *Service) CreateUpwardReview(actor *identity.User, cycleID int64, dto CreateUpwardReviewDTO) (*UpwardReview, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if actor.ManagerID == nil || *actor.ManagerID != dto.ManagerID {
		return nil, internal.NewValidationError("can only review your own manager", internal.ErrCodeValidationFailed)
	}
	if _, err := s.repo.GetCycle(cycleID); err != nil {
		return nil, internal.NewNotFoundError("review cycle not found", internal.ErrCodeNotFound).WithCause(err)
	}

	ur := &UpwardReview{
		CycleID:     cycleID,
		ReviewerID:  actor.ID,
		ManagerID:   dto.ManagerID,
		IsAnonymous: dto.IsAnonymous,
		Status:      StatusPending,
	}
	if _, err := s.repo.CreateUpwardReview(ur); err != nil {
		return nil, internal.NewInternalError("failed to create upward review", err)
	}
	return ur, nil
}

func (s *Service) SubmitUpwardReview(ctx context.Context, actor *identity.User, reviewID int64, dto SubmitUpwardReviewDTO) (*UpwardReview, error) {
	ur, err := s.repo.GetUpwardReview(reviewID)
	if err != nil {
		return nil, internal.NewNotFoundError("upward review not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if actor.ID != ur.ReviewerID {
		return nil, internal.NewForbiddenError("only the reviewer can submit", internal.ErrCodeForbidden)
	}
	if ur.Status == StatusCompleted {
		return nil, errAlreadySubmitted()
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	now := s.now()
	ur.LeadershipRating = &dto.LeadershipRating
	ur.CommunicationRating = &dto.CommunicationRating
	ur.SupportRating = &dto.SupportRating
	ur.Comments = dto.Comments
	ur.Status = StatusCompleted
	ur.SubmittedAt = &now
	if err := s.repo.UpdateUpwardReview(ur); err != nil {
		return nil, internal.NewInternalError("failed to submit upward review", err)
	}
	s.publishSubmission(ctx, "upward_review", ur.ID, ur.CycleID, actor.ID)
	return ur, nil
}

func (s *Service) ScheduleMeeting(actor *identity.User, cycleID int64, dto ScheduleMeetingDTO) (*ReviewMeeting, error) {
	if !actor.IsManager() && !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only managers can schedule review meetings", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if _, err := s.repo.GetCycle(cycleID); err != nil {
		return nil, internal.NewNotFoundError("review cycle not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if actor.IsManager() {
		isReport, err := s.dir.IsDirectReport(actor.ID, dto.EmployeeID)
		if err != nil {
			return nil, internal.NewNotFoundError("employee not found", internal.ErrCodeUserNotFound).WithCause(err)
		}
		if !isReport {
			return nil, internal.NewValidationError("employee is not a direct report", internal.ErrCodeNotDirectReport)
		}
	}

	m := &ReviewMeeting{
		CycleID:     cycleID,
		ManagerID:   actor.ID,
		EmployeeID:  dto.EmployeeID,
		ScheduledAt: dto.ScheduledAt,
		Status:      MeetingScheduled,
	}
	if err := s.repo.CreateMeeting(m); err != nil {
		return nil, internal.NewInternalError("failed to schedule meeting", err)
	}
	return m, nil
}

func (s *Service) ListMeetings(actor *identity.User, cycleID int64) ([]*ReviewMeeting, error) {
	if actor.IsHRAdmin() {
		return s.repo.MeetingsForCycle(cycleID)
	}
	return s.repo.MeetingsForUser(cycleID, actor.ID)
}

func (s *Service) CompleteMeeting(actor *identity.User, meetingID int64, dto CompleteMeetingDTO) (*ReviewMeeting, error) {
	m, err := s.repo.GetMeeting(meetingID)
	if err != nil {
		return nil, internal.NewNotFoundError("meeting not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if actor.ID != m.ManagerID && !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only the scheduling manager can complete the meeting", internal.ErrCodeForbidden)
	}
	if m.Status == MeetingCompleted {
		return nil, internal.NewConflictError("meeting already completed", internal.ErrCodeAlreadySubmitted)
	}

	m.Status = MeetingCompleted
	m.Notes = dto.Notes
	m.ActionItems = dto.ActionItems
	if err := s.repo.UpdateMeeting(m); err != nil {
		return nil, internal.NewInternalError("failed to complete meeting", err)
	}
	return m, nil
}

// canViewAssessmentOf allows the owner, the owner's manager, and HR admins.
func (s *Service) canViewAssessmentOf(actor *identity.User, ownerID int64) error {
	if actor.IsHRAdmin() || actor.ID == ownerID {
		return nil
	}
	if actor.IsManager() {
		isReport, err := s.dir.IsDirectReport(actor.ID, ownerID)
		if err != nil {
			return internal.NewInternalError("failed to resolve reporting relationship", err)
		}
		if isReport {
			return nil
		}
	}
	return internal.NewForbiddenError("not allowed to view this assessment", internal.ErrCodeForbidden)
}

func (s *Service) publishSubmission(ctx context.Context, kind string, recordID, cycleID, userID int64) {
	if s.bus == nil {
		return
	}
	event := events.NewAssessmentSubmittedEvent(kind, recordID, cycleID, userID)
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish submission event", "kind", kind, "record_id", recordID, "error", err)
	}
}

func applySelfAssessment(sa *SelfAssessment, dto UpdateSelfAssessmentDTO) {
	if dto.TechnicalRating != nil {
		sa.TechnicalRating = dto.TechnicalRating
	}
	if dto.TechnicalJustification != nil {
		sa.TechnicalJustification = *dto.TechnicalJustification
	}
	if dto.CommunicationRating != nil {
		sa.CommunicationRating = dto.CommunicationRating
	}
	if dto.CommunicationJustification != nil {
		sa.CommunicationJustification = *dto.CommunicationJustification
	}
	if dto.LeadershipRating != nil {
		sa.LeadershipRating = dto.LeadershipRating
	}
	if dto.LeadershipJustification != nil {
		sa.LeadershipJustification = *dto.LeadershipJustification
	}
	if dto.GoalRating != nil {
		sa.GoalRating = dto.GoalRating
	}
	if dto.GoalJustification != nil {
		sa.GoalJustification = *dto.GoalJustification
	}
	if dto.OverallComments != nil {
		sa.OverallComments = *dto.OverallComments
	}
}
