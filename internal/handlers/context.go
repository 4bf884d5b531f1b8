package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/middleware"
	"github.com/charlesng35/tradeflow/pkg/errors"
	"github.com/charlesng35/tradeflow/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// requireActor returns the authenticated actor or writes a 401 and reports false.
func requireActor(c *gin.Context) (auditctx.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return auditctx.Actor{}, false
	}
	return actor, true
}
