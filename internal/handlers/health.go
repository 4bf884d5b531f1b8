package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/monitoring"
	"github.com/charlesng35/tradeflow/pkg/response"
)

// HealthHandler exposes liveness and readiness reports.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// Health reports every probe.
func (h *HealthHandler) Health(c *gin.Context) {
	h.respond(c, h.manager.Evaluate(requestContext(c)))
}

// Live reports the liveness probes.
func (h *HealthHandler) Live(c *gin.Context) {
	h.respond(c, h.manager.EvaluateLiveness(requestContext(c)))
}

// Ready reports the readiness probes.
func (h *HealthHandler) Ready(c *gin.Context) {
	h.respond(c, h.manager.EvaluateReadiness(requestContext(c)))
}

func (h *HealthHandler) respond(c *gin.Context, report monitoring.HealthReport) {
	code := http.StatusOK
	if report.Status == monitoring.StatusDown {
		code = http.StatusServiceUnavailable
	}
	response.Success(c, code, report)
}
