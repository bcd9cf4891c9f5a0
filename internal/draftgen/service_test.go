package draftgen_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/draftgen"
	"github.com/talenthub/performance-management/internal/feedback"
	"github.com/talenthub/performance-management/internal/identity"
	"github.com/talenthub/performance-management/internal/review"
)

func TestDraftGenService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DraftGen Service Suite")
}

type mockReviewSource struct {
	selfAssessments map[string]*review.SelfAssessment
	peerReviews     []*review.PeerReview
	managerReviews  map[string]*review.ManagerReview
}

func srcKey(cycleID, userID int64) string {
	return fmt.Sprintf("%d:%d", cycleID, userID)
}

func (m *mockReviewSource) GetSelfAssessment(cycleID, userID int64) (*review.SelfAssessment, error) {
	sa, ok := m.selfAssessments[srcKey(cycleID, userID)]
	if !ok {
		return nil, review.ErrRecordNotFound
	}
	return sa, nil
}

func (m *mockReviewSource) PeerReviewsForReviewee(cycleID, revieweeID int64) ([]*review.PeerReview, error) {
	var out []*review.PeerReview
	for _, pr := range m.peerReviews {
		if pr.CycleID == cycleID && pr.RevieweeID == revieweeID {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (m *mockReviewSource) GetManagerReviewFor(cycleID, employeeID int64) (*review.ManagerReview, error) {
	mr, ok := m.managerReviews[srcKey(cycleID, employeeID)]
	if !ok {
		return nil, review.ErrRecordNotFound
	}
	return mr, nil
}

type mockFeedbackSource struct {
	rows []*feedback.Feedback
}

func (m *mockFeedbackSource) ListForUser(userID int64, limit, offset int) ([]*feedback.Feedback, error) {
	var out []*feedback.Feedback
	for _, f := range m.rows {
		if f.FromUserID == userID || f.ToUserID == userID {
			out = append(out, f)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockDirectory struct {
	users map[int64]*identity.User
}

func (m *mockDirectory) UserByID(id int64) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return u, nil
}

// failingClient simulates an unreachable text service.
type failingClient struct{}

func (failingClient) Generate(ctx context.Context, category string, bundle *draftgen.ContextBundle) (string, error) {
	return "", errors.New("connection refused")
}

// recordingClient returns a canned draft and captures the bundle it was given.
type recordingClient struct {
	bundle   *draftgen.ContextBundle
	category string
}

func (c *recordingClient) Generate(ctx context.Context, category string, bundle *draftgen.ContextBundle) (string, error) {
	c.bundle = bundle
	c.category = category
	return "A thoughtful generated draft.", nil
}

func appErrStatus(err error) int {
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}

var _ = Describe("DraftGenService", func() {
	var (
		reviews *mockReviewSource
		fb      *mockFeedbackSource
		dir     *mockDirectory
		admin   *identity.User
		manager *identity.User
		ic      *identity.User
		peer    *identity.User
		ctx     context.Context
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	rate := func(n int) *int { return &n }

	BeforeEach(func() {
		managerID := int64(2)
		admin = &identity.User{ID: 1, Name: "Ava Admin", Role: identity.RoleHRAdmin}
		manager = &identity.User{ID: 2, Name: "Morgan Manager", Role: identity.RoleManager}
		ic = &identity.User{ID: 3, Name: "Iris Chen", Role: identity.RoleIndividualContributor, ManagerID: &managerID}
		peer = &identity.User{ID: 4, Name: "Pat Lee", Role: identity.RoleIndividualContributor, ManagerID: &managerID}

		dir = &mockDirectory{users: map[int64]*identity.User{1: admin, 2: manager, 3: ic, 4: peer}}
		reviews = &mockReviewSource{
			selfAssessments: map[string]*review.SelfAssessment{
				srcKey(10, 3): {
					CycleID: 10, UserID: 3,
					TechnicalRating: rate(4), CommunicationRating: rate(3),
					OverallComments: "Shipped the rollout ahead of schedule.",
				},
			},
			peerReviews: []*review.PeerReview{
				{CycleID: 10, ReviewerID: 4, RevieweeID: 3, Status: review.StatusCompleted,
					CollaborationRating: rate(5), CommunicationRating: rate(4), Strengths: "great pairing partner"},
				{CycleID: 10, ReviewerID: 5, RevieweeID: 3, Status: review.StatusCompleted,
					CollaborationRating: rate(3), CommunicationRating: rate(4)},
				{CycleID: 10, ReviewerID: 6, RevieweeID: 3, Status: review.StatusPending,
					CollaborationRating: rate(1)},
			},
			managerReviews: map[string]*review.ManagerReview{
				srcKey(10, 3): {CycleID: 10, EmployeeID: 3, ManagerID: 2,
					Strengths: "strong delivery", AchievementsSummary: "led the migration"},
			},
		}
		fb = &mockFeedbackSource{rows: []*feedback.Feedback{
			{FromUserID: 2, ToUserID: 3, FeedbackType: feedback.TypePraise, Content: "handled the incident calmly"},
		}}
		ctx = context.Background()
	})

	newService := func(client draftgen.TextClient) *draftgen.Service {
		return draftgen.NewService(reviews, fb, dir, client, testLogger)
	}

	Describe("validation", func() {
		It("rejects missing fields", func() {
			svc := newService(nil)
			for _, dto := range []draftgen.GenerateDraftDTO{
				{CycleID: 10, Category: draftgen.CategoryStrengths},
				{EmployeeID: 3, Category: draftgen.CategoryStrengths},
				{EmployeeID: 3, CycleID: 10},
			} {
				_, err := svc.Generate(ctx, admin, dto)
				Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
			}
		})

		It("rejects an unknown category", func() {
			svc := newService(nil)
			_, err := svc.Generate(ctx, admin, draftgen.GenerateDraftDTO{
				EmployeeID: 3, CycleID: 10, Category: "weaknesses",
			})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown employee", func() {
			svc := newService(nil)
			_, err := svc.Generate(ctx, admin, draftgen.GenerateDraftDTO{
				EmployeeID: 999, CycleID: 10, Category: draftgen.CategoryStrengths,
			})
			Expect(appErrStatus(err)).To(Equal(http.StatusNotFound))
		})
	})

	Describe("permissions", func() {
		It("allows self, manager and HR admin", func() {
			svc := newService(nil)
			for _, actor := range []*identity.User{ic, manager, admin} {
				_, err := svc.Generate(ctx, actor, draftgen.GenerateDraftDTO{
					EmployeeID: 3, CycleID: 10, Category: draftgen.CategoryStrengths,
				})
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("forbids an unrelated individual contributor", func() {
			svc := newService(nil)
			_, err := svc.Generate(ctx, peer, draftgen.GenerateDraftDTO{
				EmployeeID: 3, CycleID: 10, Category: draftgen.CategoryStrengths,
			})
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))
		})
	})

	Describe("context bundle", func() {
		It("averages completed peer ratings per key and skips pending reviews", func() {
			client := &recordingClient{}
			svc := newService(client)

			resp, err := svc.Generate(ctx, admin, draftgen.GenerateDraftDTO{
				EmployeeID: 3, CycleID: 10, Category: draftgen.CategoryOverallPerformance,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Source).To(Equal(draftgen.SourceGenerated))
			Expect(resp.DraftContent).To(Equal("A thoughtful generated draft."))

			Expect(client.category).To(Equal(draftgen.CategoryOverallPerformance))
			Expect(client.bundle.EmployeeName).To(Equal("Iris Chen"))
			Expect(client.bundle.PeerAverages["collaboration"]).To(BeNumerically("~", 4, 0.001))
			Expect(client.bundle.PeerAverages["communication"]).To(BeNumerically("~", 4, 0.001))
			Expect(client.bundle.PeerComments).To(ContainElement("great pairing partner"))
			Expect(client.bundle.SelfRatings["technical"]).To(Equal(4))
			Expect(client.bundle.ManagerSummary).To(ContainSubstring("strong delivery"))
			Expect(client.bundle.RecentFeedback).To(ContainElement("handled the incident calmly"))
		})

		It("tolerates a cycle with no records at all", func() {
			svc := newService(nil)
			resp, err := svc.Generate(ctx, admin, draftgen.GenerateDraftDTO{
				EmployeeID: 4, CycleID: 99, Category: draftgen.CategoryStrengths,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.DraftContent).NotTo(BeEmpty())
		})
	})

	Describe("fallback", func() {
		It("substitutes the deterministic draft when the text service fails", func() {
			svc := newService(failingClient{})
			resp, err := svc.Generate(ctx, manager, draftgen.GenerateDraftDTO{
				EmployeeID: 3, CycleID: 10, Category: draftgen.CategoryAchievements,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Source).To(Equal(draftgen.SourceFallback))
			Expect(resp.DraftContent).To(ContainSubstring("Iris Chen"))
			Expect(resp.DraftContent).To(ContainSubstring("Shipped the rollout ahead of schedule."))
		})

		It("produces the same fallback text for the same inputs", func() {
			bundle := &draftgen.ContextBundle{EmployeeName: "Iris Chen"}
			first := draftgen.FallbackDraft(draftgen.CategoryAreasToImprove, bundle)
			second := draftgen.FallbackDraft(draftgen.CategoryAreasToImprove, bundle)
			Expect(first).To(Equal(second))
			Expect(strings.TrimSpace(first)).NotTo(BeEmpty())
		})

		It("covers every category with non-empty text", func() {
			bundle := &draftgen.ContextBundle{}
			for _, category := range []string{
				draftgen.CategoryStrengths, draftgen.CategoryAreasToImprove,
				draftgen.CategoryAchievements, draftgen.CategoryOverallPerformance,
			} {
				Expect(draftgen.FallbackDraft(category, bundle)).NotTo(BeEmpty())
			}
		})
	})
})
