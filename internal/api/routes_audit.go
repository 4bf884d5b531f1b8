package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/handlers"
	"github.com/charlesng35/tradeflow/internal/middleware"
	"github.com/charlesng35/tradeflow/internal/services"
)

func registerAuditRoutes(api *gin.RouterGroup, audit *services.AuditService) {
	handler := handlers.NewAuditHandler(audit)
	api.GET("/audit", middleware.RequireAdmin(), handler.List)
}
