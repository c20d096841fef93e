package auth

import "context"

// Actor is the authenticated user a request acts for. Handlers pass its
// UserID explicitly into every service call.
type Actor struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

type actorKey struct{}

func NewContext(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
