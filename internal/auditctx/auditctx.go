// Package auditctx carries the authenticated actor of a request.
package auditctx

import (
	"context"

	"github.com/charlesng35/tradeflow/internal/models"
)

// Actor captures the authenticated user that initiated a request. The role is
// loaded from the database for every request and never taken from the token.
type Actor struct {
	UserID    string
	Username  string
	TenantID  string
	Role      models.Role
	IPAddress string
	UserAgent string
}

// Valid reports whether the actor carries a user, a tenant and a known role.
func (a Actor) Valid() bool {
	return a.UserID != "" && a.TenantID != "" && a.Role.Valid()
}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// FromUser builds an actor from a persisted user.
func FromUser(user *models.User) Actor {
	if user == nil {
		return Actor{}
	}
	return Actor{
		UserID:   user.ID,
		Username: user.Username,
		TenantID: user.TenantID,
		Role:     user.Role,
	}
}

type actorContextKey struct{}

// WithActor injects actor metadata into the supplied context, returning a derived context that
// callers can pass down into service layers.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		return context.WithValue(context.Background(), actorContextKey{}, actor)
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext extracts previously stored actor metadata from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
