package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/handlers"
	"github.com/charlesng35/tradeflow/internal/middleware"
	"github.com/charlesng35/tradeflow/internal/permissions"
	"github.com/charlesng35/tradeflow/internal/services"
)

func registerPaymentRoutes(api *gin.RouterGroup, db *gorm.DB, audit *services.AuditService) error {
	svc, err := services.NewPaymentService(db, audit)
	if err != nil {
		return err
	}
	handler := handlers.NewPaymentHandler(svc)
	write := middleware.RequireResource(permissions.ResourcePayment)

	payments := api.Group("/payments")
	{
		payments.GET("", handler.List)
		payments.GET("/:id", handler.Get)
		payments.POST("", write, handler.Create)
		payments.PATCH("/:id", write, handler.Update)
		payments.DELETE("/:id", write, handler.Delete)
	}
	return nil
}
