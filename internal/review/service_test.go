package review_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/identity"
	"github.com/talenthub/performance-management/internal/review"
)

func TestReviewService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Review Service Suite")
}

// mockReviewRepository implements review.Repository and review.FanOutStore in
// memory. Uniqueness keys mirror the database constraints.
type mockReviewRepository struct {
	cycles          map[int64]*review.ReviewCycle
	participants    map[string]*review.ReviewParticipant
	selfAssessments map[string]*review.SelfAssessment
	peerReviews     map[string]*review.PeerReview
	managerReviews  map[string]*review.ManagerReview
	upwardReviews   map[string]*review.UpwardReview
	meetings        map[int64]*review.ReviewMeeting
	goalAssessments map[int64][]review.GoalAssessment
	goalMgrRows     map[int64][]review.GoalManagerAssessment
	nextID          int64
}

func newMockReviewRepository() *mockReviewRepository {
	return &mockReviewRepository{
		cycles:          make(map[int64]*review.ReviewCycle),
		participants:    make(map[string]*review.ReviewParticipant),
		selfAssessments: make(map[string]*review.SelfAssessment),
		peerReviews:     make(map[string]*review.PeerReview),
		managerReviews:  make(map[string]*review.ManagerReview),
		upwardReviews:   make(map[string]*review.UpwardReview),
		meetings:        make(map[int64]*review.ReviewMeeting),
		goalAssessments: make(map[int64][]review.GoalAssessment),
		goalMgrRows:     make(map[int64][]review.GoalManagerAssessment),
		nextID:          1,
	}
}

func key(parts ...int64) string {
	out := ""
	for _, p := range parts {
		out += fmt.Sprintf("%d:", p)
	}
	return out
}

func (m *mockReviewRepository) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockReviewRepository) CreateCycle(c *review.ReviewCycle) error {
	c.ID = m.id()
	m.cycles[c.ID] = c
	return nil
}

func (m *mockReviewRepository) GetCycle(id int64) (*review.ReviewCycle, error) {
	c, ok := m.cycles[id]
	if !ok {
		return nil, review.ErrCycleNotFound
	}
	return c, nil
}

func (m *mockReviewRepository) UpdateCycle(c *review.ReviewCycle) error {
	m.cycles[c.ID] = c
	return nil
}

func (m *mockReviewRepository) DeleteCycle(id int64) error {
	delete(m.cycles, id)
	return nil
}

func (m *mockReviewRepository) ListCycles(includeDraft bool, limit, offset int) ([]*review.ReviewCycle, error) {
	var out []*review.ReviewCycle
	for _, c := range m.cycles {
		if !includeDraft && c.Status == review.CycleStatusDraft {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mockReviewRepository) WithinTransaction(fn func(store review.FanOutStore) error) error {
	// The mock applies writes directly; rollback coverage lives in the
	// sqlite-backed repository tests.
	return fn(m)
}

func (m *mockReviewRepository) ActivateDraftCycle(cycleID int64) (bool, error) {
	c, ok := m.cycles[cycleID]
	if !ok || c.Status != review.CycleStatusDraft {
		return false, nil
	}
	c.Status = review.CycleStatusActive
	return true, nil
}

func (m *mockReviewRepository) GetOrCreateParticipant(p *review.ReviewParticipant) (bool, error) {
	k := key(p.CycleID, p.UserID)
	if _, ok := m.participants[k]; ok {
		return false, nil
	}
	p.ID = m.id()
	m.participants[k] = p
	return true, nil
}

func (m *mockReviewRepository) GetOrCreateSelfAssessment(sa *review.SelfAssessment) (bool, error) {
	k := key(sa.CycleID, sa.UserID)
	if _, ok := m.selfAssessments[k]; ok {
		return false, nil
	}
	sa.ID = m.id()
	m.selfAssessments[k] = sa
	return true, nil
}

func (m *mockReviewRepository) GetOrCreatePeerReview(pr *review.PeerReview) (bool, error) {
	k := key(pr.CycleID, pr.ReviewerID, pr.RevieweeID)
	if _, ok := m.peerReviews[k]; ok {
		return false, nil
	}
	pr.ID = m.id()
	m.peerReviews[k] = pr
	return true, nil
}

func (m *mockReviewRepository) GetOrCreateManagerReview(mr *review.ManagerReview) (bool, error) {
	k := key(mr.CycleID, mr.ManagerID, mr.EmployeeID)
	if _, ok := m.managerReviews[k]; ok {
		return false, nil
	}
	mr.ID = m.id()
	m.managerReviews[k] = mr
	return true, nil
}

func (m *mockReviewRepository) GetParticipant(cycleID, userID int64) (*review.ReviewParticipant, error) {
	p, ok := m.participants[key(cycleID, userID)]
	if !ok {
		return nil, review.ErrRecordNotFound
	}
	return p, nil
}

func (m *mockReviewRepository) AddParticipant(p *review.ReviewParticipant) (bool, error) {
	return m.GetOrCreateParticipant(p)
}

func (m *mockReviewRepository) CountParticipants(cycleID int64) (int64, error) {
	var count int64
	for _, p := range m.participants {
		if p.CycleID == cycleID && p.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *mockReviewRepository) GetSelfAssessment(cycleID, userID int64) (*review.SelfAssessment, error) {
	sa, ok := m.selfAssessments[key(cycleID, userID)]
	if !ok {
		return nil, review.ErrRecordNotFound
	}
	return sa, nil
}

func (m *mockReviewRepository) GetSelfAssessmentByID(id int64) (*review.SelfAssessment, error) {
	for _, sa := range m.selfAssessments {
		if sa.ID == id {
			return sa, nil
		}
	}
	return nil, review.ErrRecordNotFound
}

func (m *mockReviewRepository) UpdateSelfAssessment(sa *review.SelfAssessment) error {
	m.selfAssessments[key(sa.CycleID, sa.UserID)] = sa
	return nil
}

func (m *mockReviewRepository) CreateSelfAssessment(sa *review.SelfAssessment) (bool, error) {
	return m.GetOrCreateSelfAssessment(sa)
}

func (m *mockReviewRepository) ReplaceGoalAssessments(selfAssessmentID int64, rows []review.GoalAssessment) error {
	m.goalAssessments[selfAssessmentID] = rows
	return nil
}

func (m *mockReviewRepository) GoalAssessmentsFor(selfAssessmentID int64) ([]review.GoalAssessment, error) {
	return m.goalAssessments[selfAssessmentID], nil
}

func (m *mockReviewRepository) CountSelfAssessments(cycleID int64, status string) (int64, error) {
	var count int64
	for _, sa := range m.selfAssessments {
		if sa.CycleID == cycleID && (status == "" || sa.Status == status) {
			count++
		}
	}
	return count, nil
}

func (m *mockReviewRepository) CreatePeerReview(pr *review.PeerReview) (bool, error) {
	return m.GetOrCreatePeerReview(pr)
}

func (m *mockReviewRepository) GetPeerReview(id int64) (*review.PeerReview, error) {
	for _, pr := range m.peerReviews {
		if pr.ID == id {
			return pr, nil
		}
	}
	return nil, review.ErrRecordNotFound
}

func (m *mockReviewRepository) PeerReviewsForReviewer(cycleID, reviewerID int64) ([]*review.PeerReview, error) {
	var out []*review.PeerReview
	for _, pr := range m.peerReviews {
		if pr.CycleID == cycleID && pr.ReviewerID == reviewerID {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (m *mockReviewRepository) PeerReviewsForCycle(cycleID int64) ([]*review.PeerReview, error) {
	var out []*review.PeerReview
	for _, pr := range m.peerReviews {
		if pr.CycleID == cycleID {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (m *mockReviewRepository) PeerReviewsForReviewee(cycleID, revieweeID int64) ([]*review.PeerReview, error) {
	var out []*review.PeerReview
	for _, pr := range m.peerReviews {
		if pr.CycleID == cycleID && pr.RevieweeID == revieweeID {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (m *mockReviewRepository) UpdatePeerReview(pr *review.PeerReview) error {
	m.peerReviews[key(pr.CycleID, pr.ReviewerID, pr.RevieweeID)] = pr
	return nil
}

func (m *mockReviewRepository) CountPeerReviews(cycleID int64, status string) (int64, error) {
	var count int64
	for _, pr := range m.peerReviews {
		if pr.CycleID == cycleID && (status == "" || pr.Status == status) {
			count++
		}
	}
	return count, nil
}

func (m *mockReviewRepository) CreateManagerReview(mr *review.ManagerReview) (bool, error) {
	return m.GetOrCreateManagerReview(mr)
}

func (m *mockReviewRepository) GetManagerReview(id int64) (*review.ManagerReview, error) {
	for _, mr := range m.managerReviews {
		if mr.ID == id {
			return mr, nil
		}
	}
	return nil, review.ErrRecordNotFound
}

func (m *mockReviewRepository) GetManagerReviewFor(cycleID, employeeID int64) (*review.ManagerReview, error) {
	for _, mr := range m.managerReviews {
		if mr.CycleID == cycleID && mr.EmployeeID == employeeID {
			return mr, nil
		}
	}
	return nil, review.ErrRecordNotFound
}

func (m *mockReviewRepository) ManagerReviewsForManager(cycleID, managerID int64) ([]*review.ManagerReview, error) {
	var out []*review.ManagerReview
	for _, mr := range m.managerReviews {
		if mr.CycleID == cycleID && mr.ManagerID == managerID {
			out = append(out, mr)
		}
	}
	return out, nil
}

func (m *mockReviewRepository) UpdateManagerReview(mr *review.ManagerReview) error {
	m.managerReviews[key(mr.CycleID, mr.ManagerID, mr.EmployeeID)] = mr
	return nil
}

func (m *mockReviewRepository) ReplaceGoalManagerAssessments(managerReviewID int64, rows []review.GoalManagerAssessment) error {
	m.goalMgrRows[managerReviewID] = rows
	return nil
}

func (m *mockReviewRepository) CountManagerReviews(cycleID int64, status string) (int64, error) {
	var count int64
	for _, mr := range m.managerReviews {
		if mr.CycleID == cycleID && (status == "" || mr.Status == status) {
			count++
		}
	}
	return count, nil
}

func (m *mockReviewRepository) CreateUpwardReview(ur *review.UpwardReview) (bool, error) {
	k := key(ur.CycleID, ur.ReviewerID, ur.ManagerID)
	if _, ok := m.upwardReviews[k]; ok {
		return false, nil
	}
	ur.ID = m.id()
	m.upwardReviews[k] = ur
	return true, nil
}

func (m *mockReviewRepository) GetUpwardReview(id int64) (*review.UpwardReview, error) {
	for _, ur := range m.upwardReviews {
		if ur.ID == id {
			return ur, nil
		}
	}
	return nil, review.ErrRecordNotFound
}

func (m *mockReviewRepository) UpwardReviewsForManager(cycleID, managerID int64) ([]*review.UpwardReview, error) {
	var out []*review.UpwardReview
	for _, ur := range m.upwardReviews {
		if ur.CycleID == cycleID && ur.ManagerID == managerID {
			out = append(out, ur)
		}
	}
	return out, nil
}

func (m *mockReviewRepository) UpdateUpwardReview(ur *review.UpwardReview) error {
	m.upwardReviews[key(ur.CycleID, ur.ReviewerID, ur.ManagerID)] = ur
	return nil
}

func (m *mockReviewRepository) CreateMeeting(mt *review.ReviewMeeting) error {
	mt.ID = m.id()
	m.meetings[mt.ID] = mt
	return nil
}

func (m *mockReviewRepository) GetMeeting(id int64) (*review.ReviewMeeting, error) {
	mt, ok := m.meetings[id]
	if !ok {
		return nil, review.ErrRecordNotFound
	}
	return mt, nil
}

func (m *mockReviewRepository) MeetingsForCycle(cycleID int64) ([]*review.ReviewMeeting, error) {
	var out []*review.ReviewMeeting
	for _, mt := range m.meetings {
		if mt.CycleID == cycleID {
			out = append(out, mt)
		}
	}
	return out, nil
}

func (m *mockReviewRepository) MeetingsForUser(cycleID, userID int64) ([]*review.ReviewMeeting, error) {
	var out []*review.ReviewMeeting
	for _, mt := range m.meetings {
		if mt.CycleID == cycleID && (mt.ManagerID == userID || mt.EmployeeID == userID) {
			out = append(out, mt)
		}
	}
	return out, nil
}

func (m *mockReviewRepository) UpdateMeeting(mt *review.ReviewMeeting) error {
	m.meetings[mt.ID] = mt
	return nil
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

func (m *mockDirectory) IsDirectReport(managerID, userID int64) (bool, error) {
	u, ok := m.users[userID]
	if !ok {
		return false, identity.ErrNotFound
	}
	return u.ManagerID != nil && *u.ManagerID == managerID, nil
}

func (m *mockDirectory) ActiveUsersInDepartments(departmentIDs []int64) ([]*identity.User, error) {
	var out []*identity.User
	for _, u := range m.users {
		if !u.IsActive {
			continue
		}
		for _, dep := range departmentIDs {
			if u.DepartmentID == dep {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func appErrStatus(err error) int {
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}

var _ = Describe("ReviewService", func() {
	var (
		repo    *mockReviewRepository
		dir     *mockDirectory
		svc     *review.Service
		admin   *identity.User
		manager *identity.User
		ic      *identity.User
		peer    *identity.User
		ctx     context.Context
		now     time.Time
	)

	longAgo := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		repo = newMockReviewRepository()
		testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		managerID := int64(2)
		admin = &identity.User{ID: 1, Role: identity.RoleHRAdmin, DepartmentID: 1, IsActive: true, HireDate: longAgo}
		manager = &identity.User{ID: 2, Role: identity.RoleManager, DepartmentID: 1, IsActive: true, HireDate: longAgo}
		ic = &identity.User{ID: 3, Role: identity.RoleIndividualContributor, DepartmentID: 1, ManagerID: &managerID, IsActive: true, HireDate: longAgo}
		peer = &identity.User{ID: 4, Role: identity.RoleIndividualContributor, DepartmentID: 1, ManagerID: &managerID, IsActive: true, HireDate: longAgo}

		dir = &mockDirectory{users: map[int64]*identity.User{1: admin, 2: manager, 3: ic, 4: peer}}
		svc = review.NewService(repo, dir, nil, testLogger).
			WithClock(func() time.Time { return now }).
			WithRand(rand.New(rand.NewSource(1)))
		ctx = context.Background()
	})

	createCycle := func() *review.ReviewCycle {
		c, err := svc.CreateCycle(admin, review.CreateCycleDTO{
			Name:                "Q1 2026",
			ReviewType:          review.TypeQuarterly,
			SelfAssessmentStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			SelfAssessmentEnd:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			PeerReviewStart:     time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
			PeerReviewEnd:       time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
			ManagerReviewStart:  time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC),
			ManagerReviewEnd:    time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	startCycle := func(c *review.ReviewCycle) *review.StartResult {
		result, err := svc.Start(ctx, admin, c.ID, review.StartCycleDTO{DepartmentIDs: []int64{1}})
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	Describe("Phase machine", func() {
		It("derives the phase from the clock for active cycles", func() {
			c := createCycle()
			startCycle(c)

			cases := map[string]time.Time{
				review.PhaseSelfReview:    time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
				review.PhasePeerReview:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
				review.PhaseManagerReview: time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC),
				review.PhaseWrapUp:        time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC),
				review.PhasePending:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			}
			for want, at := range cases {
				Expect(repo.cycles[c.ID].CurrentPhase(at)).To(Equal(want))
			}
		})

		It("reports the raw status for non-active cycles", func() {
			c := createCycle()
			Expect(c.CurrentPhase(now)).To(Equal(review.CycleStatusDraft))
		})

		It("lets the earliest window win when windows overlap", func() {
			c := createCycle()
			startCycle(c)
			c = repo.cycles[c.ID]
			c.PeerReviewStart = c.SelfAssessmentStart
			Expect(c.CurrentPhase(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))).
				To(Equal(review.PhaseSelfReview))
		})
	})

	Describe("Start fan-out", func() {
		It("creates participants, self assessments, peer and manager reviews", func() {
			c := createCycle()
			result := startCycle(c)

			Expect(result.Participants).To(Equal(4))
			Expect(result.SelfAssessments).To(Equal(4))
			// Both ICs report to the manager, who is in the population.
			Expect(result.ManagerReviews).To(Equal(2))
			Expect(result.PeerReviews).To(BeNumerically(">", 0))
			Expect(repo.cycles[c.ID].Status).To(Equal(review.CycleStatusActive))
		})

		It("never assigns self reviews or a manager's own reports", func() {
			c := createCycle()
			startCycle(c)

			for _, pr := range repo.peerReviews {
				Expect(pr.ReviewerID).NotTo(Equal(pr.RevieweeID))
				if pr.ReviewerID == manager.ID {
					Expect(pr.RevieweeID).NotTo(Equal(ic.ID))
					Expect(pr.RevieweeID).NotTo(Equal(peer.ID))
				}
			}
		})

		It("caps peer reviews at three per reviewer", func() {
			for i := int64(10); i < 20; i++ {
				dir.users[i] = &identity.User{
					ID: i, Role: identity.RoleIndividualContributor,
					DepartmentID: 1, IsActive: true, HireDate: longAgo,
				}
			}
			c := createCycle()
			startCycle(c)

			perReviewer := make(map[int64]int)
			for _, pr := range repo.peerReviews {
				perReviewer[pr.ReviewerID]++
			}
			for _, n := range perReviewer {
				Expect(n).To(BeNumerically("<=", 3))
			}
		})

		It("excludes probationary hires by default", func() {
			dir.users[5] = &identity.User{
				ID: 5, Role: identity.RoleIndividualContributor,
				DepartmentID: 1, IsActive: true,
				HireDate: now.Add(-30 * 24 * time.Hour),
			}
			c := createCycle()
			result := startCycle(c)

			Expect(result.ExcludedUsers).To(Equal(1))
			Expect(repo.participants[key(c.ID, 5)]).To(BeNil())
		})

		It("includes probationary hires when the setting is off", func() {
			dir.users[5] = &identity.User{
				ID: 5, Role: identity.RoleIndividualContributor,
				DepartmentID: 1, IsActive: true,
				HireDate: now.Add(-30 * 24 * time.Hour),
			}
			c := createCycle()
			result, err := svc.Start(ctx, admin, c.ID, review.StartCycleDTO{
				DepartmentIDs: []int64{1},
				Settings:      json.RawMessage(`{"exclude_probationary": false}`),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ExcludedUsers).To(Equal(0))
			Expect(repo.participants[key(c.ID, 5)]).NotTo(BeNil())
		})

		It("rejects unknown settings keys", func() {
			c := createCycle()
			_, err := svc.Start(ctx, admin, c.ID, review.StartCycleDTO{
				DepartmentIDs: []int64{1},
				Settings:      json.RawMessage(`{"exclude_probationary_employees": true}`),
			})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
			Expect(repo.cycles[c.ID].Status).To(Equal(review.CycleStatusDraft))
		})

		It("requires department_ids", func() {
			c := createCycle()
			_, err := svc.Start(ctx, admin, c.ID, review.StartCycleDTO{})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("conflicts when the cycle is no longer draft", func() {
			c := createCycle()
			startCycle(c)
			_, err := svc.Start(ctx, admin, c.ID, review.StartCycleDTO{DepartmentIDs: []int64{1}})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("skips auto assignment when disabled", func() {
			c := createCycle()
			result, err := svc.Start(ctx, admin, c.ID, review.StartCycleDTO{
				DepartmentIDs: []int64{1},
				Settings:      json.RawMessage(`{"auto_assign_peer_reviews": false}`),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.PeerReviews).To(Equal(0))
			Expect(repo.peerReviews).To(BeEmpty())
		})

		It("is restricted to HR admins", func() {
			c := createCycle()
			_, err := svc.Start(ctx, manager, c.ID, review.StartCycleDTO{DepartmentIDs: []int64{1}})
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))
		})
	})

	Describe("Participants", func() {
		It("adds a participant idempotently", func() {
			c := createCycle()
			startCycle(c)

			before := len(repo.participants)
			_, err := svc.AddParticipant(admin, c.ID, review.AddParticipantDTO{UserID: ic.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.participants).To(HaveLen(before))
		})
	})

	Describe("Self assessment submission", func() {
		var c *review.ReviewCycle

		rate := func(n int) *int { return &n }

		BeforeEach(func() {
			c = createCycle()
			startCycle(c)
			_, err := svc.UpdateSelfAssessment(ic, c.ID, review.UpdateSelfAssessmentDTO{
				TechnicalRating:     rate(4),
				CommunicationRating: rate(3),
				LeadershipRating:    rate(3),
				GoalRating:          rate(5),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("submits once and conflicts on the second attempt", func() {
			sa, err := svc.SubmitSelfAssessment(ctx, ic, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(sa.Status).To(Equal(review.StatusCompleted))
			Expect(sa.SubmittedAt).NotTo(BeNil())

			_, err = svc.SubmitSelfAssessment(ctx, ic, c.ID)
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("rejects edits after submission", func() {
			_, err := svc.SubmitSelfAssessment(ctx, ic, c.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.UpdateSelfAssessment(ic, c.ID, review.UpdateSelfAssessmentDTO{TechnicalRating: rate(1)})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("rejects out-of-range ratings", func() {
			_, err := svc.UpdateSelfAssessment(peer, c.ID, review.UpdateSelfAssessmentDTO{TechnicalRating: rate(6)})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Peer review", func() {
		It("rejects reviewing yourself", func() {
			c := createCycle()
			startCycle(c)
			_, err := svc.CreatePeerReview(ic, c.ID, review.CreatePeerReviewDTO{RevieweeID: ic.ID})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("submits once with valid ratings", func() {
			c := createCycle()
			pr, err := svc.CreatePeerReview(ic, c.ID, review.CreatePeerReviewDTO{RevieweeID: peer.ID})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.SubmitPeerReview(ctx, ic, pr.ID, review.SubmitPeerReviewDTO{
				CollaborationRating: 4,
				CommunicationRating: 4,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.SubmitPeerReview(ctx, ic, pr.ID, review.SubmitPeerReviewDTO{
				CollaborationRating: 4,
				CommunicationRating: 4,
			})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("hides the reviewer from the reviewee when anonymous", func() {
			c := createCycle()
			pr, err := svc.CreatePeerReview(ic, c.ID, review.CreatePeerReviewDTO{RevieweeID: peer.ID, IsAnonymous: true})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.SubmitPeerReview(ctx, ic, pr.ID, review.SubmitPeerReviewDTO{
				CollaborationRating: 4, CommunicationRating: 4,
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := svc.GetPeerReview(peer, pr.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ReviewerID).To(Equal(int64(0)))
		})
	})

	Describe("Manager review", func() {
		It("requires the employee to be a direct report", func() {
			c := createCycle()
			other := &identity.User{ID: 9, Role: identity.RoleManager, DepartmentID: 2, IsActive: true, HireDate: longAgo}
			dir.users[9] = other

			_, err := svc.CreateManagerReview(other, c.ID, review.CreateManagerReviewDTO{EmployeeID: ic.ID})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("submits with all five ratings and conflicts on resubmit", func() {
			c := createCycle()
			mr, err := svc.CreateManagerReview(manager, c.ID, review.CreateManagerReviewDTO{EmployeeID: ic.ID})
			Expect(err).NotTo(HaveOccurred())

			dto := review.SubmitManagerReviewDTO{
				OverallRating: 4, TechnicalRating: 4, CommunicationRating: 3,
				LeadershipRating: 3, GoalAchievementRating: 5,
			}
			_, err = svc.SubmitManagerReview(ctx, manager, mr.ID, dto)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.SubmitManagerReview(ctx, manager, mr.ID, dto)
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("rejects a rating of zero", func() {
			c := createCycle()
			mr, err := svc.CreateManagerReview(manager, c.ID, review.CreateManagerReviewDTO{EmployeeID: ic.ID})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.SubmitManagerReview(ctx, manager, mr.ID, review.SubmitManagerReviewDTO{
				OverallRating: 0, TechnicalRating: 4, CommunicationRating: 3,
				LeadershipRating: 3, GoalAchievementRating: 5,
			})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Upward review", func() {
		It("only allows reviewing your own manager", func() {
			c := createCycle()
			other := &identity.User{ID: 9, Role: identity.RoleManager, DepartmentID: 1, IsActive: true, HireDate: longAgo}
			dir.users[9] = other

			_, err := svc.CreateUpwardReview(ic, c.ID, review.CreateUpwardReviewDTO{ManagerID: 9})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))

			ur, err := svc.CreateUpwardReview(ic, c.ID, review.CreateUpwardReviewDTO{ManagerID: manager.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(ur.ReviewerID).To(Equal(ic.ID))
		})

		It("submits once", func() {
			c := createCycle()
			ur, err := svc.CreateUpwardReview(ic, c.ID, review.CreateUpwardReviewDTO{ManagerID: manager.ID})
			Expect(err).NotTo(HaveOccurred())

			dto := review.SubmitUpwardReviewDTO{LeadershipRating: 4, CommunicationRating: 4, SupportRating: 5}
			_, err = svc.SubmitUpwardReview(ctx, ic, ur.ID, dto)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.SubmitUpwardReview(ctx, ic, ur.ID, dto)
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Cycle visibility and progress", func() {
		It("hides draft cycles from non-admins", func() {
			c := createCycle()
			_, err := svc.GetCycle(ic, c.ID)
			Expect(appErrStatus(err)).To(Equal(http.StatusNotFound))

			cycles, err := svc.ListCycles(ic, 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(cycles).To(BeEmpty())
		})

		It("rejects progress queries from individual contributors", func() {
			c := createCycle()
			startCycle(c)
			_, err := svc.Progress(ic, c.ID)
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))
		})

		It("reports per-phase counts", func() {
			c := createCycle()
			startCycle(c)

			progress, err := svc.Progress(admin, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(progress.Participants).To(Equal(int64(4)))
			Expect(progress.SelfAssessmentsTotal).To(Equal(int64(4)))
			Expect(progress.SelfAssessmentsDone).To(Equal(int64(0)))
			Expect(progress.ManagerReviewsTotal).To(Equal(int64(2)))
		})
	})

	Describe("Meetings", func() {
		It("schedules and completes a meeting", func() {
			c := createCycle()
			m, err := svc.ScheduleMeeting(manager, c.ID, review.ScheduleMeetingDTO{
				EmployeeID:  ic.ID,
				ScheduledAt: now.Add(48 * time.Hour),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Status).To(Equal(review.MeetingScheduled))

			done, err := svc.CompleteMeeting(manager, m.ID, review.CompleteMeetingDTO{
				Notes:       "aligned on growth plan",
				ActionItems: []string{"draft promotion packet"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(done.Status).To(Equal(review.MeetingCompleted))

			_, err = svc.CompleteMeeting(manager, m.ID, review.CompleteMeetingDTO{})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("refuses meetings outside the reporting line", func() {
			c := createCycle()
			other := &identity.User{ID: 9, Role: identity.RoleManager, DepartmentID: 2, IsActive: true, HireDate: longAgo}
			dir.users[9] = other

			_, err := svc.ScheduleMeeting(other, c.ID, review.ScheduleMeetingDTO{
				EmployeeID:  ic.ID,
				ScheduledAt: now.Add(48 * time.Hour),
			})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})
	})
})
