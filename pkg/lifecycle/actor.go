package lifecycle

import "context"

// Actor is the authenticated identity performing a transition. It is resolved
// by the authentication layer and consumed verbatim by the engine; the engine
// never reads or writes credential or token material.
type Actor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

// actorContextKey is the context key type for the resolved actor.
type actorContextKey struct{}

// WithActor returns a new context carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext retrieves the actor stored by WithActor. The boolean is
// false when the request was never authenticated.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
