package identity

import "context"

type ctxKey string

// ContextActorKey holds the authenticated user for the request.
const ContextActorKey ctxKey = "actor"

func WithActor(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextActorKey, u)
}

func ActorFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextActorKey).(*User)
	return u, ok
}
