package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/permissions"
	"github.com/charlesng35/tradeflow/pkg/errors"
	"github.com/charlesng35/tradeflow/pkg/metrics"
	"github.com/charlesng35/tradeflow/pkg/response"
)

// ActionParam is the route parameter holding the transition action.
const ActionParam = "action"

// RequireAction gates transition routes on the role's action and resource grants.
// The action is read from the :action route parameter.
func RequireAction(resource permissions.ResourceType) gin.HandlerFunc {
	return gate("action", func(actor auditctx.Actor, c *gin.Context) bool {
		return permissions.AuthorizeAction(actor.Role, resource, permissions.Action(c.Param(ActionParam)))
	}, errors.ErrActionForbidden)
}

// RequireResource gates create, update and delete routes of resource.
func RequireResource(resource permissions.ResourceType) gin.HandlerFunc {
	return gate("resource", func(actor auditctx.Actor, _ *gin.Context) bool {
		return permissions.AuthorizeResource(actor.Role, resource)
	}, errors.ErrForbidden)
}

// RequireAdmin restricts a route to the ADMIN role.
func RequireAdmin() gin.HandlerFunc {
	return gate("admin", func(actor auditctx.Actor, _ *gin.Context) bool {
		return actor.IsAdmin()
	}, errors.ErrForbidden)
}

func gate(name string, allowed func(auditctx.Actor, *gin.Context) bool, denied *errors.AppError) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !allowed(actor, c) {
			metrics.PermissionChecks.WithLabelValues(name, "denied").Inc()
			response.Error(c, denied)
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues(name, "allowed").Inc()
		c.Next()
	}
}
