package feedback_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/feedback"
	"github.com/talenthub/performance-management/internal/identity"
)

func TestFeedbackService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Feedback Service Suite")
}

type mockFeedbackRepository struct {
	feedback map[int64]*feedback.Feedback
	tags     map[int64][]feedback.Tag
	comments map[int64][]feedback.Comment
	nextID   int64
}

func newMockFeedbackRepository() *mockFeedbackRepository {
	return &mockFeedbackRepository{
		feedback: make(map[int64]*feedback.Feedback),
		tags:     make(map[int64][]feedback.Tag),
		comments: make(map[int64][]feedback.Comment),
		nextID:   1,
	}
}

func (m *mockFeedbackRepository) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockFeedbackRepository) Create(f *feedback.Feedback) error {
	f.ID = m.id()
	f.CreatedAt = time.Now()
	m.feedback[f.ID] = f
	return nil
}

func (m *mockFeedbackRepository) GetByID(id int64) (*feedback.Feedback, error) {
	f, ok := m.feedback[id]
	if !ok {
		return nil, feedback.ErrNotFound
	}
	return f, nil
}

func (m *mockFeedbackRepository) Update(f *feedback.Feedback) error {
	m.feedback[f.ID] = f
	return nil
}

func (m *mockFeedbackRepository) Delete(id int64) error {
	delete(m.feedback, id)
	delete(m.tags, id)
	delete(m.comments, id)
	return nil
}

func (m *mockFeedbackRepository) ListAll(limit, offset int) ([]*feedback.Feedback, error) {
	var out []*feedback.Feedback
	for _, f := range m.feedback {
		out = append(out, f)
	}
	return out, nil
}

func (m *mockFeedbackRepository) ListForUser(userID int64, limit, offset int) ([]*feedback.Feedback, error) {
	var out []*feedback.Feedback
	for _, f := range m.feedback {
		if f.IsParty(userID) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFeedbackRepository) ListForManager(managerID, departmentID int64, limit, offset int) ([]*feedback.Feedback, error) {
	// The real query joins on the recipient's department; the mock just
	// returns everything and lets the service filter.
	var out []*feedback.Feedback
	for _, f := range m.feedback {
		out = append(out, f)
	}
	return out, nil
}

func (m *mockFeedbackRepository) AddTag(t *feedback.Tag) error {
	t.ID = m.id()
	t.CreatedAt = time.Now()
	m.tags[t.FeedbackID] = append(m.tags[t.FeedbackID], *t)
	return nil
}

func (m *mockFeedbackRepository) HasTag(feedbackID int64, tag string) (bool, error) {
	for _, t := range m.tags[feedbackID] {
		if t.Tag == tag {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockFeedbackRepository) RemoveTag(feedbackID int64, tag string) error {
	tags := m.tags[feedbackID]
	for i, t := range tags {
		if t.Tag == tag {
			m.tags[feedbackID] = append(tags[:i], tags[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockFeedbackRepository) TagsFor(feedbackID int64) ([]feedback.Tag, error) {
	return m.tags[feedbackID], nil
}

func (m *mockFeedbackRepository) AddComment(c *feedback.Comment) error {
	c.ID = m.id()
	c.CreatedAt = time.Now()
	m.comments[c.FeedbackID] = append(m.comments[c.FeedbackID], *c)
	return nil
}

func (m *mockFeedbackRepository) CommentsFor(feedbackID int64) ([]feedback.Comment, error) {
	return m.comments[feedbackID], nil
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

func appErrStatus(err error) int {
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}

var _ = Describe("FeedbackService", func() {
	var (
		repo    *mockFeedbackRepository
		svc     *feedback.Service
		admin   *identity.User
		manager *identity.User
		ic      *identity.User
		peer    *identity.User
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockFeedbackRepository()
		testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

		managerID := int64(2)
		admin = &identity.User{ID: 1, Role: identity.RoleHRAdmin, DepartmentID: 1, IsActive: true}
		manager = &identity.User{ID: 2, Role: identity.RoleManager, DepartmentID: 1, IsActive: true}
		ic = &identity.User{ID: 3, Role: identity.RoleIndividualContributor, DepartmentID: 1, ManagerID: &managerID, IsActive: true}
		peer = &identity.User{ID: 4, Role: identity.RoleIndividualContributor, DepartmentID: 1, ManagerID: &managerID, IsActive: true}

		dir := &mockDirectory{users: map[int64]*identity.User{1: admin, 2: manager, 3: ic, 4: peer}}
		svc = feedback.NewService(repo, dir, nil, testLogger)
		ctx = context.Background()
	})

	create := func(from *identity.User, to int64, visibility string) *feedback.Feedback {
		f, err := svc.Create(ctx, from, feedback.CreateFeedbackDTO{
			ToUserID:     to,
			FeedbackType: feedback.TypePraise,
			Visibility:   visibility,
			Content:      "great sprint work",
		})
		Expect(err).NotTo(HaveOccurred())
		return f
	}

	Describe("Create", func() {
		It("defaults visibility to public", func() {
			f := create(peer, ic.ID, "")
			Expect(f.Visibility).To(Equal(feedback.VisibilityPublic))
			Expect(f.FromUserID).To(Equal(peer.ID))
		})

		It("rejects an unknown feedback type", func() {
			_, err := svc.Create(ctx, peer, feedback.CreateFeedbackDTO{
				ToUserID: ic.ID, FeedbackType: "rant", Content: "x",
			})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("rejects an unknown recipient", func() {
			_, err := svc.Create(ctx, peer, feedback.CreateFeedbackDTO{
				ToUserID: 999, FeedbackType: feedback.TypePraise, Content: "x",
			})
			Expect(appErrStatus(err)).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Visibility", func() {
		It("hides private feedback from everyone but the parties and HR", func() {
			f := create(peer, ic.ID, feedback.VisibilityPrivate)

			_, err := svc.Get(manager, f.ID)
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))

			_, err = svc.Get(ic, f.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Get(admin, f.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("admits the recipient's manager to manager_only feedback", func() {
			f := create(peer, ic.ID, feedback.VisibilityManagerOnly)

			_, err := svc.Get(manager, f.ID)
			Expect(err).NotTo(HaveOccurred())

			other := &identity.User{ID: 7, Role: identity.RoleManager, DepartmentID: 2, IsActive: true}
			_, err = svc.Get(other, f.ID)
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))
		})

		It("keeps public feedback within the manager's department scope", func() {
			f := create(peer, ic.ID, feedback.VisibilityPublic)

			_, err := svc.Get(manager, f.ID)
			Expect(err).NotTo(HaveOccurred())

			outsider := &identity.User{ID: 8, Role: identity.RoleIndividualContributor, DepartmentID: 2, IsActive: true}
			_, err = svc.Get(outsider, f.ID)
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))
		})

		It("filters private rows out of a manager's list", func() {
			create(peer, ic.ID, feedback.VisibilityPrivate)
			create(peer, ic.ID, feedback.VisibilityPublic)

			rows, err := svc.List(manager, 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].Visibility).To(Equal(feedback.VisibilityPublic))
		})
	})

	Describe("Edit and delete", func() {
		It("only lets the author edit", func() {
			f := create(peer, ic.ID, "")
			content := "updated"
			_, err := svc.Update(ic, f.ID, feedback.UpdateFeedbackDTO{Content: &content})
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))

			_, err = svc.Update(admin, f.ID, feedback.UpdateFeedbackDTO{Content: &content})
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))

			updated, err := svc.Update(peer, f.ID, feedback.UpdateFeedbackDTO{Content: &content})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Content).To(Equal("updated"))
		})

		It("lets the author or an HR admin delete", func() {
			f := create(peer, ic.ID, "")
			Expect(appErrStatus(svc.Delete(ic, f.ID))).To(Equal(http.StatusForbidden))
			Expect(svc.Delete(admin, f.ID)).To(Succeed())

			f = create(peer, ic.ID, "")
			Expect(svc.Delete(peer, f.ID)).To(Succeed())
		})
	})

	Describe("Tags", func() {
		It("rejects a duplicate tag with a conflict", func() {
			f := create(peer, ic.ID, "")
			_, err := svc.AddTag(peer, f.ID, feedback.AddTagDTO{Tag: "collaboration"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.AddTag(ic, f.ID, feedback.AddTagDTO{Tag: "collaboration"})
			Expect(appErrStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 when removing a missing tag", func() {
			f := create(peer, ic.ID, "")
			err := svc.RemoveTag(peer, f.ID, "nonexistent")
			Expect(appErrStatus(err)).To(Equal(http.StatusNotFound))
		})

		It("returns 404 for a missing feedback row", func() {
			err := svc.RemoveTag(peer, 999, "x")
			Expect(appErrStatus(err)).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Comments", func() {
		It("appends comments from any viewer", func() {
			f := create(peer, ic.ID, "")
			_, err := svc.AddComment(manager, f.ID, feedback.AddCommentDTO{Content: "agreed"})
			Expect(err).NotTo(HaveOccurred())

			resp, err := svc.Get(ic, f.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Comments).To(HaveLen(1))
			Expect(resp.Comments[0].UserID).To(Equal(manager.ID))
		})

		It("refuses comments from users who cannot view", func() {
			f := create(peer, ic.ID, feedback.VisibilityPrivate)
			_, err := svc.AddComment(manager, f.ID, feedback.AddCommentDTO{Content: "x"})
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))
		})
	})
})
