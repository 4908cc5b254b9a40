package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-backend/internal/policy"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor stores the authenticated caller on ctx.
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller set by Auth. Unauthenticated requests
// get the zero Actor, which the policy rejects.
func ActorFromContext(ctx context.Context) policy.Actor {
	if ctx == nil {
		return policy.Actor{}
	}
	if v, ok := ctx.Value(ctxActor).(policy.Actor); ok {
		return v
	}
	return policy.Actor{}
}

// UserIDFromContext returns the caller's id as a string, or "".
func UserIDFromContext(ctx context.Context) string {
	actor := ActorFromContext(ctx)
	if actor.Anonymous() {
		return ""
	}
	return actor.UserID.String()
}
