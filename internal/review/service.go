package review

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/core/events"
	"github.com/talenthub/performance-management/internal/identity"
)

// Repository defines the data access methods for the review domain.
type Repository interface {
	CreateCycle(c *ReviewCycle) error
	GetCycle(id int64) (*ReviewCycle, error)
	UpdateCycle(c *ReviewCycle) error
	DeleteCycle(id int64) error
	ListCycles(includeDraft bool, limit, offset int) ([]*ReviewCycle, error)

	WithinTransaction(fn func(store FanOutStore) error) error

	GetParticipant(cycleID, userID int64) (*ReviewParticipant, error)
	AddParticipant(p *ReviewParticipant) (bool, error)
	CountParticipants(cycleID int64) (int64, error)

	GetSelfAssessment(cycleID, userID int64) (*SelfAssessment, error)
	GetSelfAssessmentByID(id int64) (*SelfAssessment, error)
	UpdateSelfAssessment(sa *SelfAssessment) error
	CreateSelfAssessment(sa *SelfAssessment) (bool, error)
	ReplaceGoalAssessments(selfAssessmentID int64, rows []GoalAssessment) error
	GoalAssessmentsFor(selfAssessmentID int64) ([]GoalAssessment, error)
	CountSelfAssessments(cycleID int64, status string) (int64, error)

	CreatePeerReview(pr *PeerReview) (bool, error)
	GetPeerReview(id int64) (*PeerReview, error)
	PeerReviewsForReviewer(cycleID, reviewerID int64) ([]*PeerReview, error)
	PeerReviewsForCycle(cycleID int64) ([]*PeerReview, error)
	PeerReviewsForReviewee(cycleID, revieweeID int64) ([]*PeerReview, error)
	UpdatePeerReview(pr *PeerReview) error
	CountPeerReviews(cycleID int64, status string) (int64, error)

	CreateManagerReview(mr *ManagerReview) (bool, error)
	GetManagerReview(id int64) (*ManagerReview, error)
	GetManagerReviewFor(cycleID, employeeID int64) (*ManagerReview, error)
	ManagerReviewsForManager(cycleID, managerID int64) ([]*ManagerReview, error)
	UpdateManagerReview(mr *ManagerReview) error
	ReplaceGoalManagerAssessments(managerReviewID int64, rows []GoalManagerAssessment) error
	CountManagerReviews(cycleID int64, status string) (int64, error)

	CreateUpwardReview(ur *UpwardReview) (bool, error)
	GetUpwardReview(id int64) (*UpwardReview, error)
	UpwardReviewsForManager(cycleID, managerID int64) ([]*UpwardReview, error)
	UpdateUpwardReview(ur *UpwardReview) error

	CreateMeeting(m *ReviewMeeting) error
	GetMeeting(id int64) (*ReviewMeeting, error)
	MeetingsForCycle(cycleID int64) ([]*ReviewMeeting, error)
	MeetingsForUser(cycleID, userID int64) ([]*ReviewMeeting, error)
	UpdateMeeting(m *ReviewMeeting) error
}

// Directory is the slice of the identity service the review domain needs.
type Directory interface {
	UserByID(id int64) (*identity.User, error)
	IsDirectReport(managerID, userID int64) (bool, error)
	ActiveUsersInDepartments(departmentIDs []int64) ([]*identity.User, error)
}

type Service struct {
	repo   Repository
	dir    Directory
	bus    *events.EventBus
	logger *slog.Logger
	rng    *rand.Rand
	now    func() time.Time
}

func NewService(repo Repository, dir Directory, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		dir:    dir,
		bus:    bus,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// WithClock overrides the service clock, used by tests to pin phase windows.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithRand overrides the random source, used by tests for deterministic peer
// assignment.
func (s *Service) WithRand(rng *rand.Rand) *Service {
	s.rng = rng
	return s
}

func (s *Service) CreateCycle(actor *identity.User, dto CreateCycleDTO) (*ReviewCycle, error) {
	if !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only HR admins can create review cycles", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	c := &ReviewCycle{
		Name:                dto.Name,
		ReviewType:          dto.ReviewType,
		Status:              CycleStatusDraft,
		SelfAssessmentStart: dto.SelfAssessmentStart,
		SelfAssessmentEnd:   dto.SelfAssessmentEnd,
		PeerReviewStart:     dto.PeerReviewStart,
		PeerReviewEnd:       dto.PeerReviewEnd,
		ManagerReviewStart:  dto.ManagerReviewStart,
		ManagerReviewEnd:    dto.ManagerReviewEnd,
		CreatedBy:           actor.ID,
	}
	if err := s.repo.CreateCycle(c); err != nil {
		s.logger.Error("failed to create review cycle", "error", err)
		return nil, internal.NewInternalError("failed to create review cycle", err)
	}
	return c, nil
}

func (s *Service) GetCycle(actor *identity.User, cycleID int64) (*CycleResponse, error) {
	c, err := s.repo.GetCycle(cycleID)
	if err != nil {
		return nil, internal.NewNotFoundError("review cycle not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if c.Status == CycleStatusDraft && !actor.IsHRAdmin() {
		return nil, internal.NewNotFoundError("review cycle not found", internal.ErrCodeNotFound)
	}
	return &CycleResponse{ReviewCycle: *c, CurrentPhase: c.CurrentPhase(s.now())}, nil
}

// ListCycles hides draft cycles from everyone but HR admins.
func (s *Service) ListCycles(actor *identity.User, limit, offset int) ([]*CycleResponse, error) {
	cycles, err := s.repo.ListCycles(actor.IsHRAdmin(), limit, offset)
	if err != nil {
		return nil, internal.NewInternalError("failed to list review cycles", err)
	}
	out := make([]*CycleResponse, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, &CycleResponse{ReviewCycle: *c, CurrentPhase: c.CurrentPhase(s.now())})
	}
	return out, nil
}

// UpdateCycle covers the plain status transitions, including active to
// completed. Only the start transition has fan-out semantics; that lives in
// Start.
func (s *Service) UpdateCycle(actor *identity.User, cycleID int64, dto UpdateCycleDTO) (*ReviewCycle, error) {
	if !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only HR admins can update review cycles", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	c, err := s.repo.GetCycle(cycleID)
	if err != nil {
		return nil, internal.NewNotFoundError("review cycle not found", internal.ErrCodeNotFound).WithCause(err)
	}

	if dto.Name != nil {
		c.Name = *dto.Name
	}
	if dto.Status != nil {
		if *dto.Status == CycleStatusActive && c.Status == CycleStatusDraft {
			return nil, internal.NewValidationError(
				"use the start endpoint to activate a cycle", internal.ErrCodeValidationFailed)
		}
		c.Status = *dto.Status
	}
	if err := s.repo.UpdateCycle(c); err != nil {
		return nil, internal.NewInternalError("failed to update review cycle", err)
	}
	return c, nil
}

func (s *Service) DeleteCycle(actor *identity.User, cycleID int64) error {
	if !actor.IsHRAdmin() {
		return internal.NewForbiddenError("only HR admins can delete review cycles", internal.ErrCodeForbidden)
	}
	c, err := s.repo.GetCycle(cycleID)
	if err != nil {
		return internal.NewNotFoundError("review cycle not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if c.Status != CycleStatusDraft {
		return internal.NewConflictError("only draft cycles can be deleted", internal.ErrCodeValidationFailed)
	}
	if err := s.repo.DeleteCycle(cycleID); err != nil {
		return internal.NewInternalError("failed to delete review cycle", err)
	}
	return nil
}

// AddParticipant is idempotent: adding a user who already participates
// succeeds without creating a second row.
func (s *Service) AddParticipant(actor *identity.User, cycleID int64, dto AddParticipantDTO) (*ReviewParticipant, error) {
	if !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only HR admins can add participants", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if _, err := s.repo.GetCycle(cycleID); err != nil {
		return nil, internal.NewNotFoundError("review cycle not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if _, err := s.dir.UserByID(dto.UserID); err != nil {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound).WithCause(err)
	}

	p := &ReviewParticipant{CycleID: cycleID, UserID: dto.UserID, IsActive: true}
	if _, err := s.repo.AddParticipant(p); err != nil {
		return nil, internal.NewInternalError("failed to add participant", err)
	}
	// Late joiners still need a self-assessment shell.
	if _, err := s.repo.CreateSelfAssessment(&SelfAssessment{
		CycleID: cycleID, UserID: dto.UserID, Status: StatusPending,
	}); err != nil {
		return nil, internal.NewInternalError("failed to create self assessment", err)
	}

	existing, err := s.repo.GetParticipant(cycleID, dto.UserID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load participant", err)
	}
	return existing, nil
}

// Progress reports per-phase completion counts. Individual contributors have
// no use for aggregate numbers and are rejected.
func (s *Service) Progress(actor *identity.User, cycleID int64) (*CycleProgress, error) {
	if actor.IsIndividualContributor() {
		return nil, internal.NewForbiddenError("not allowed to view cycle progress", internal.ErrCodeForbidden)
	}
	c, err := s.repo.GetCycle(cycleID)
	if err != nil {
		return nil, internal.NewNotFoundError("review cycle not found", internal.ErrCodeNotFound).WithCause(err)
	}

	progress := &CycleProgress{CycleID: cycleID, CurrentPhase: c.CurrentPhase(s.now())}

	if progress.Participants, err = s.repo.CountParticipants(cycleID); err != nil {
		return nil, internal.NewInternalError("failed to count participants", err)
	}
	if progress.SelfAssessmentsDone, err = s.repo.CountSelfAssessments(cycleID, StatusCompleted); err != nil {
		return nil, internal.NewInternalError("failed to count self assessments", err)
	}
	if progress.SelfAssessmentsTotal, err = s.repo.CountSelfAssessments(cycleID, ""); err != nil {
		return nil, internal.NewInternalError("failed to count self assessments", err)
	}
	if progress.PeerReviewsDone, err = s.repo.CountPeerReviews(cycleID, StatusCompleted); err != nil {
		return nil, internal.NewInternalError("failed to count peer reviews", err)
	}
	if progress.PeerReviewsTotal, err = s.repo.CountPeerReviews(cycleID, ""); err != nil {
		return nil, internal.NewInternalError("failed to count peer reviews", err)
	}
	if progress.ManagerReviewsDone, err = s.repo.CountManagerReviews(cycleID, StatusCompleted); err != nil {
		return nil, internal.NewInternalError("failed to count manager reviews", err)
	}
	if progress.ManagerReviewsTotal, err = s.repo.CountManagerReviews(cycleID, ""); err != nil {
		return nil, internal.NewInternalError("failed to count manager reviews", err)
	}

	total := progress.SelfAssessmentsTotal + progress.PeerReviewsTotal + progress.ManagerReviewsTotal
	done := progress.SelfAssessmentsDone + progress.PeerReviewsDone + progress.ManagerReviewsDone
	if total > 0 {
		progress.CompletionPercentage = float64(done) / float64(total) * 100
	}
	return progress, nil
}
