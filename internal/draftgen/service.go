package draftgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/feedback"
	"github.com/talenthub/performance-management/internal/identity"
	"github.com/talenthub/performance-management/internal/review"
)

const recentFeedbackLimit = 5

type GenerateDraftDTO struct {
	EmployeeID int64  `json:"employee_id"`
	CycleID    int64  `json:"cycle_id"`
	Category   string `json:"category"`
}

func (d GenerateDraftDTO) Validate() error {
	if d.EmployeeID <= 0 {
		return errors.New("employee_id is required")
	}
	if d.CycleID <= 0 {
		return errors.New("cycle_id is required")
	}
	if d.Category == "" {
		return errors.New("category is required")
	}
	if !ValidCategory(d.Category) {
		return fmt.Errorf("unknown category %q", d.Category)
	}
	return nil
}

type DraftResponse struct {
	DraftContent string `json:"draft_content"`
	Category     string `json:"category"`
	Source       string `json:"source"`
}

// ReviewSource is the slice of the review repository the generator reads.
type ReviewSource interface {
	GetSelfAssessment(cycleID, userID int64) (*review.SelfAssessment, error)
	PeerReviewsForReviewee(cycleID, revieweeID int64) ([]*review.PeerReview, error)
	GetManagerReviewFor(cycleID, employeeID int64) (*review.ManagerReview, error)
}

// FeedbackSource provides the recent feedback slice of the bundle.
type FeedbackSource interface {
	ListForUser(userID int64, limit, offset int) ([]*feedback.Feedback, error)
}

type Directory interface {
	UserByID(id int64) (*identity.User, error)
}

type Service struct {
	reviews  ReviewSource
	feedback FeedbackSource
	dir      Directory
	client   TextClient
	logger   *slog.Logger
}

func NewService(reviews ReviewSource, fb FeedbackSource, dir Directory, client TextClient, logger *slog.Logger) *Service {
	return &Service{
		reviews:  reviews,
		feedback: fb,
		dir:      dir,
		client:   client,
		logger:   logger,
	}
}

// Generate assembles the context bundle and asks the text service for a
// draft. Any failure from the service substitutes the deterministic fallback
// for the category, so the caller always receives usable content.
func (s *Service) Generate(ctx context.Context, actor *identity.User, dto GenerateDraftDTO) (*DraftResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	employee, err := s.dir.UserByID(dto.EmployeeID)
	if err != nil {
		return nil, internal.NewNotFoundError("employee not found", internal.ErrCodeUserNotFound).WithCause(err)
	}
	if err := s.canGenerateFor(actor, employee); err != nil {
		return nil, err
	}

	bundle, err := s.assembleBundle(employee, dto.CycleID)
	if err != nil {
		return nil, err
	}

	resp := &DraftResponse{Category: dto.Category}
	if s.client != nil {
		content, genErr := s.client.Generate(ctx, dto.Category, bundle)
		if genErr == nil && content != "" {
			resp.DraftContent = content
			resp.Source = SourceGenerated
			return resp, nil
		}
		s.logger.Warn("text service failed, using fallback draft",
			"employee_id", dto.EmployeeID, "category", dto.Category, "error", genErr)
	}

	resp.DraftContent = FallbackDraft(dto.Category, bundle)
	resp.Source = SourceFallback
	return resp, nil
}

// canGenerateFor allows HR admins, the employee themself, and the employee's
// direct manager.
func (s *Service) canGenerateFor(actor *identity.User, employee *identity.User) error {
	if actor.IsHRAdmin() || actor.ID == employee.ID {
		return nil
	}
	if actor.IsManager() && employee.ManagerID != nil && *employee.ManagerID == actor.ID {
		return nil
	}
	return internal.NewForbiddenError("not allowed to generate drafts for this employee", internal.ErrCodeForbidden)
}

// assembleBundle reads the employee's review and feedback state. Missing
// records are simply left out of the bundle; only unexpected store errors
// fail the request. No transaction is held while the bundle is used.
func (s *Service) assembleBundle(employee *identity.User, cycleID int64) (*ContextBundle, error) {
	bundle := &ContextBundle{
		EmployeeName: employee.Name,
		EmployeeRole: employee.Role,
	}

	sa, err := s.reviews.GetSelfAssessment(cycleID, employee.ID)
	switch {
	case err == nil:
		bundle.SelfRatings = make(map[string]int)
		for key, rating := range map[string]*int{
			"technical":     sa.TechnicalRating,
			"communication": sa.CommunicationRating,
			"leadership":    sa.LeadershipRating,
			"goals":         sa.GoalRating,
		} {
			if rating != nil {
				bundle.SelfRatings[key] = *rating
			}
		}
		bundle.SelfComments = sa.OverallComments
	case errors.Is(err, review.ErrRecordNotFound):
	default:
		return nil, internal.NewInternalError("failed to load self assessment", err)
	}

	peers, err := s.reviews.PeerReviewsForReviewee(cycleID, employee.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load peer reviews", err)
	}
	bundle.PeerAverages, bundle.PeerComments = summarizePeerReviews(peers)

	mr, err := s.reviews.GetManagerReviewFor(cycleID, employee.ID)
	switch {
	case err == nil:
		bundle.ManagerSummary = managerHighlights(mr)
	case errors.Is(err, review.ErrRecordNotFound):
	default:
		return nil, internal.NewInternalError("failed to load manager review", err)
	}

	recent, err := s.feedback.ListForUser(employee.ID, recentFeedbackLimit, 0)
	if err != nil {
		return nil, internal.NewInternalError("failed to load recent feedback", err)
	}
	for _, f := range recent {
		bundle.RecentFeedback = append(bundle.RecentFeedback, f.Content)
	}
	return bundle, nil
}

// summarizePeerReviews averages each numeric rating key across completed
// reviews and collects the written comments.
func summarizePeerReviews(peers []*review.PeerReview) (map[string]float64, []string) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	var comments []string

	for _, pr := range peers {
		if pr.Status != review.StatusCompleted {
			continue
		}
		if pr.CollaborationRating != nil {
			sums["collaboration"] += float64(*pr.CollaborationRating)
			counts["collaboration"]++
		}
		if pr.CommunicationRating != nil {
			sums["communication"] += float64(*pr.CommunicationRating)
			counts["communication"]++
		}
		if pr.Strengths != "" {
			comments = append(comments, pr.Strengths)
		}
		if pr.AreasForImprovement != "" {
			comments = append(comments, pr.AreasForImprovement)
		}
	}

	if len(counts) == 0 {
		return nil, comments
	}
	averages := make(map[string]float64, len(counts))
	for key, sum := range sums {
		averages[key] = sum / float64(counts[key])
	}
	return averages, comments
}

func managerHighlights(mr *review.ManagerReview) string {
	var parts []string
	if mr.Strengths != "" {
		parts = append(parts, "Strengths: "+mr.Strengths)
	}
	if mr.AreasForImprovement != "" {
		parts = append(parts, "Areas for improvement: "+mr.AreasForImprovement)
	}
	if mr.AchievementsSummary != "" {
		parts = append(parts, "Achievements: "+mr.AchievementsSummary)
	}
	return strings.Join(parts, " ")
}
