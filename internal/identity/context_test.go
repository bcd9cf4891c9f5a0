package identity_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/talenthub/performance-management/internal/identity"
)

var _ = Describe("actor context", func() {
	It("round-trips the authenticated user through the request context", func() {
		u := &identity.User{ID: 7, Email: "iris@co.dev", Role: identity.RoleIndividualContributor}

		ctx := identity.WithActor(context.Background(), u)
		actor, ok := identity.ActorFromContext(ctx)
		Expect(ok).To(BeTrue())
		Expect(actor).To(BeIdenticalTo(u))
	})

	It("reports absence on a bare context", func() {
		actor, ok := identity.ActorFromContext(context.Background())
		Expect(ok).To(BeFalse())
		Expect(actor).To(BeNil())
	})
})
