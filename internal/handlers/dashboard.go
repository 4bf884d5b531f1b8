package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/pkg/response"
)

type DashboardHandler struct {
	svc *services.DashboardService
}

func NewDashboardHandler(svc *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// GET /api/dashboard/overview
func (h *DashboardHandler) Overview(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	overview, err := h.svc.Overview(requestContext(c), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, overview)
}

// GET /api/dashboard/calendar?from=&to=
func (h *DashboardHandler) Calendar(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.svc.Calendar(requestContext(c), actor, derefTime(from), derefTime(to))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}

func derefTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
