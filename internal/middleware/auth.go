package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/pkg/errors"
	"github.com/charlesng35/tradeflow/pkg/response"
)

const (
	CtxActorKey  = "authActor"
	CtxUserIDKey = "userID"
)

// Authenticator resolves a bearer token into the active user it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Auth enforces bearer authentication. The user, and with it the role, is
// loaded on every request so role changes apply immediately.
func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		user, err := authn.Authenticate(c.Request.Context(), strings.TrimSpace(authz[7:]))
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		actor := auditctx.FromUser(user)
		actor.IPAddress = c.ClientIP()
		actor.UserAgent = c.Request.UserAgent()

		c.Set(CtxActorKey, actor)
		c.Set(CtxUserIDKey, actor.UserID)
		c.Request = c.Request.WithContext(auditctx.WithActor(c.Request.Context(), actor))

		c.Next()
	}
}

// ActorFrom returns the actor stored by Auth.
func ActorFrom(c *gin.Context) (auditctx.Actor, bool) {
	v, ok := c.Get(CtxActorKey)
	if !ok {
		return auditctx.Actor{}, false
	}
	actor, ok := v.(auditctx.Actor)
	return actor, ok && actor.Valid()
}
