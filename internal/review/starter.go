package review

import (
	"context"
	"math/rand"
	"time"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/core/events"
	"github.com/talenthub/performance-management/internal/identity"
)

// probationPeriod is how long a new hire is excluded from review cycles when
// exclude_probationary is set.
const probationPeriod = 90 * 24 * time.Hour

const maxPeerReviewsPerUser = 3

// FanOutStore is the transactional surface the start fan-out runs against.
// Every method is a get-or-create so re-running the fan-out never duplicates
// rows.
type FanOutStore interface {
	ActivateDraftCycle(cycleID int64) (bool, error)
	GetOrCreateParticipant(p *ReviewParticipant) (bool, error)
	GetOrCreateSelfAssessment(sa *SelfAssessment) (bool, error)
	GetOrCreatePeerReview(pr *PeerReview) (bool, error)
	GetOrCreateManagerReview(mr *ManagerReview) (bool, error)
}

// Start flips the cycle from draft to active and fans out participant,
// self-assessment, peer-review and manager-review records in one transaction.
// The status flip is a conditional update on status='draft'; a concurrent
// start loses that race, sees zero rows updated, and the whole transaction
// rolls back.
func (s *Service) Start(ctx context.Context, actor *identity.User, cycleID int64, dto StartCycleDTO) (*StartResult, error) {
	if !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only HR admins can start review cycles", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	settings, err := dto.ParseSettings()
	if err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if _, err := s.repo.GetCycle(cycleID); err != nil {
		return nil, internal.NewNotFoundError("review cycle not found", internal.ErrCodeNotFound).WithCause(err)
	}

	users, err := s.dir.ActiveUsersInDepartments(dto.DepartmentIDs)
	if err != nil {
		return nil, internal.NewInternalError("failed to load cycle population", err)
	}

	population, excluded := s.selectPopulation(users, settings)
	result := &StartResult{
		CycleID:        cycleID,
		PopulationSize: len(population),
		ExcludedUsers:  excluded,
	}

	err = s.repo.WithinTransaction(func(store FanOutStore) error {
		flipped, err := store.ActivateDraftCycle(cycleID)
		if err != nil {
			return internal.NewInternalError("failed to activate cycle", err)
		}
		if !flipped {
			return internal.NewConflictError("cycle is not in draft status", internal.ErrCodeCycleNotDraft)
		}

		for _, u := range population {
			created, err := store.GetOrCreateParticipant(&ReviewParticipant{
				CycleID: cycleID, UserID: u.ID, IsActive: true,
			})
			if err != nil {
				return internal.NewInternalError("failed to create participant", err)
			}
			if created {
				result.Participants++
			}

			created, err = store.GetOrCreateSelfAssessment(&SelfAssessment{
				CycleID: cycleID, UserID: u.ID, Status: StatusPending,
			})
			if err != nil {
				return internal.NewInternalError("failed to create self assessment", err)
			}
			if created {
				result.SelfAssessments++
			}
		}

		if settings.AutoAssignPeerReviews {
			n, err := s.assignPeerReviews(store, cycleID, population, settings.PeerReviewAnonymous)
			if err != nil {
				return err
			}
			result.PeerReviews = n
		}

		n, err := s.createManagerReviews(store, cycleID, population)
		if err != nil {
			return err
		}
		result.ManagerReviews = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("review cycle started",
		"cycle_id", cycleID,
		"population", result.PopulationSize,
		"participants_created", result.Participants,
		"peer_reviews_created", result.PeerReviews,
		"manager_reviews_created", result.ManagerReviews)

	if s.bus != nil {
		event := events.NewCycleStartedEvent(cycleID, actor.ID,
			result.Participants, result.SelfAssessments, result.PeerReviews,
			result.ManagerReviews, result.ExcludedUsers)
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish cycle started event", "cycle_id", cycleID, "error", err)
		}
	}
	return result, nil
}

// selectPopulation applies the exclusion settings. exclude_contractors is
// accepted and logged but never filters anyone; employment type is not part
// of the user model.
func (s *Service) selectPopulation(users []*identity.User, settings StartSettings) (population []*identity.User, excluded int) {
	if settings.ExcludeContractors {
		s.logger.Info("exclude_contractors requested; setting has no effect")
	}

	cutoff := s.now().Add(-probationPeriod)
	for _, u := range users {
		if settings.ExcludeProbationary && u.HireDate.After(cutoff) {
			excluded++
			continue
		}
		population = append(population, u)
	}
	return population, excluded
}

// assignPeerReviews gives every participant up to three random distinct
// reviewees. Candidates exclude the reviewer and, for managers, their own
// direct reports, so a manager never peer-reviews someone they also
// manager-review.
func (s *Service) assignPeerReviews(store FanOutStore, cycleID int64, population []*identity.User, anonymous bool) (int, error) {
	reportsOf := make(map[int64]map[int64]bool)
	for _, u := range population {
		if u.ManagerID != nil {
			if reportsOf[*u.ManagerID] == nil {
				reportsOf[*u.ManagerID] = make(map[int64]bool)
			}
			reportsOf[*u.ManagerID][u.ID] = true
		}
	}

	created := 0
	for _, reviewer := range population {
		var candidates []int64
		for _, candidate := range population {
			if candidate.ID == reviewer.ID {
				continue
			}
			if reviewer.IsManager() && reportsOf[reviewer.ID][candidate.ID] {
				continue
			}
			candidates = append(candidates, candidate.ID)
		}

		for _, revieweeID := range chooseUpToN(s.rng, candidates, maxPeerReviewsPerUser) {
			wasCreated, err := store.GetOrCreatePeerReview(&PeerReview{
				CycleID:     cycleID,
				ReviewerID:  reviewer.ID,
				RevieweeID:  revieweeID,
				IsAnonymous: anonymous,
				Status:      StatusPending,
			})
			if err != nil {
				return created, internal.NewInternalError("failed to create peer review", err)
			}
			if wasCreated {
				created++
			}
		}
	}
	return created, nil
}

func (s *Service) createManagerReviews(store FanOutStore, cycleID int64, population []*identity.User) (int, error) {
	inPopulation := make(map[int64]bool, len(population))
	for _, u := range population {
		inPopulation[u.ID] = true
	}

	created := 0
	for _, u := range population {
		if u.ManagerID == nil || !inPopulation[*u.ManagerID] {
			continue
		}
		wasCreated, err := store.GetOrCreateManagerReview(&ManagerReview{
			CycleID:    cycleID,
			ManagerID:  *u.ManagerID,
			EmployeeID: u.ID,
			Status:     StatusPending,
		})
		if err != nil {
			return created, internal.NewInternalError("failed to create manager review", err)
		}
		if wasCreated {
			created++
		}
	}
	return created, nil
}

// chooseUpToN picks up to n distinct elements uniformly at random. The input
// slice is not modified.
func chooseUpToN(rng *rand.Rand, candidates []int64, n int) []int64 {
	if len(candidates) == 0 || n <= 0 {
		return nil
	}
	picked := make([]int64, len(candidates))
	copy(picked, candidates)
	rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	if len(picked) > n {
		picked = picked[:n]
	}
	return picked
}
