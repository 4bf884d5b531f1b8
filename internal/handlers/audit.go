package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/pkg/response"
)

// AuditHandler lists the tenant's audit trail.
type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	since, err := parseTimeQuery(c, "since")
	if err != nil {
		response.Error(c, err)
		return
	}
	until, err := parseTimeQuery(c, "until")
	if err != nil {
		response.Error(c, err)
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)
	opts := services.AuditListOptions{
		Page:     page,
		PageSize: perPage,
		Filters: services.AuditFilters{
			UserID:   strings.TrimSpace(c.Query("user_id")),
			Action:   strings.TrimSpace(c.Query("action")),
			Result:   strings.TrimSpace(c.Query("result")),
			Resource: strings.TrimSpace(c.Query("resource")),
			Since:    since,
			Until:    until,
		},
	}

	logs, total, err := h.svc.List(requestContext(c), actor, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}
	response.SuccessWithMeta(c, http.StatusOK, logs, response.NewMeta(page, perPage, total))
}
