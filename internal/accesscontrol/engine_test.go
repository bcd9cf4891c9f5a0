package accesscontrol_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/accesscontrol"
	"github.com/talenthub/performance-management/internal/identity"
)

func TestAccessControl(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "AccessControl Suite")
}

type stubDirectory struct {
	users map[int64]*identity.User
}

func (d *stubDirectory) UserByID(id int64) (*identity.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return u, nil
}

func (d *stubDirectory) IsDirectReport(managerID, userID int64) (bool, error) {
	u, ok := d.users[userID]
	if !ok {
		return false, identity.ErrNotFound
	}
	return u.ManagerID != nil && *u.ManagerID == managerID, nil
}

func forbidden(err error) bool {
	var appErr *internal.AppError
	return errors.As(err, &appErr) && appErr.Code == internal.ErrCodeForbidden
}

var _ = Describe("Engine", func() {
	var (
		engine  *accesscontrol.Engine
		admin   *identity.User
		manager *identity.User
		ic      *identity.User
		peer    *identity.User
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	BeforeEach(func() {
		managerID := int64(2)
		admin = &identity.User{ID: 1, Role: identity.RoleHRAdmin, DepartmentID: 3}
		manager = &identity.User{ID: 2, Role: identity.RoleManager, DepartmentID: 1}
		ic = &identity.User{ID: 3, Role: identity.RoleIndividualContributor, DepartmentID: 1, ManagerID: &managerID}
		peer = &identity.User{ID: 4, Role: identity.RoleIndividualContributor, DepartmentID: 2}

		dir := &stubDirectory{users: map[int64]*identity.User{1: admin, 2: manager, 3: ic, 4: peer}}
		engine = accesscontrol.NewEngine(dir, testLogger)
	})

	Describe("CanView", func() {
		It("never denies an HR admin", func() {
			res := accesscontrol.Resource{Kind: accesscontrol.KindGoal, OwnerID: 4}
			Expect(engine.CanView(admin, res)).To(Succeed())
		})

		It("admits any named party", func() {
			res := accesscontrol.Resource{Kind: accesscontrol.KindFeedback, Parties: []int64{3, 4}}
			Expect(engine.CanView(ic, res)).To(Succeed())
			Expect(engine.CanView(peer, res)).To(Succeed())
		})

		It("admits a manager for a direct report's resource", func() {
			res := accesscontrol.Resource{Kind: accesscontrol.KindTask, Parties: []int64{ic.ID}}
			Expect(engine.CanView(manager, res)).To(Succeed())
		})

		It("admits a manager for a department resource", func() {
			res := accesscontrol.Resource{Kind: accesscontrol.KindObjective, DepartmentIDs: []int64{1}}
			Expect(engine.CanView(manager, res)).To(Succeed())
		})

		It("denies a manager outside their reporting line and department", func() {
			res := accesscontrol.Resource{Kind: accesscontrol.KindTask, Parties: []int64{peer.ID}, DepartmentIDs: []int64{2}}
			Expect(forbidden(engine.CanView(manager, res))).To(BeTrue())
		})

		It("denies an uninvolved individual contributor", func() {
			res := accesscontrol.Resource{Kind: accesscontrol.KindGoal, OwnerID: 4, DepartmentIDs: []int64{1}}
			Expect(forbidden(engine.CanView(ic, res))).To(BeTrue())
		})
	})

	Describe("CanMutate", func() {
		It("admits only admins, owners and creators", func() {
			res := accesscontrol.Resource{Kind: accesscontrol.KindGoal, OwnerID: 3, CreatorID: 2}
			Expect(engine.CanMutate(admin, res)).To(Succeed())
			Expect(engine.CanMutate(manager, res)).To(Succeed())
			Expect(engine.CanMutate(ic, res)).To(Succeed())
			Expect(forbidden(engine.CanMutate(peer, res))).To(BeTrue())
		})

		It("does not extend write access to the department", func() {
			res := accesscontrol.Resource{Kind: accesscontrol.KindObjective, OwnerID: 4, DepartmentIDs: []int64{1}}
			Expect(forbidden(engine.CanMutate(manager, res))).To(BeTrue())
		})
	})

	Describe("RequireSelf", func() {
		It("lets admins act for anyone and others only for themselves", func() {
			Expect(accesscontrol.RequireSelf(admin, ic.ID)).To(Succeed())
			Expect(accesscontrol.RequireSelf(ic, ic.ID)).To(Succeed())
			Expect(forbidden(accesscontrol.RequireSelf(ic, peer.ID))).To(BeTrue())
		})
	})
})
