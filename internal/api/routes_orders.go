package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/handlers"
	"github.com/charlesng35/tradeflow/internal/middleware"
	"github.com/charlesng35/tradeflow/internal/permissions"
	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/internal/statussync"
)

func registerOrderRoutes(api *gin.RouterGroup, db *gorm.DB, syncer *statussync.Syncer, audit *services.AuditService) error {
	salesSvc, err := services.NewSalesOrderService(db, syncer, audit)
	if err != nil {
		return err
	}
	pipelineSvc, err := services.NewPipelineService(db, syncer, audit)
	if err != nil {
		return err
	}
	purchaseSvc, err := services.NewPurchaseOrderService(db, syncer, audit)
	if err != nil {
		return err
	}
	productionSvc, err := services.NewProductionOrderService(db, syncer, audit)
	if err != nil {
		return err
	}
	outboundSvc, err := services.NewOutboundOrderService(db, syncer, audit)
	if err != nil {
		return err
	}

	sales := handlers.NewSalesOrderHandler(salesSvc)
	salesWrite := middleware.RequireResource(permissions.ResourceSalesOrder)
	salesOrders := api.Group("/sales-orders")
	{
		salesOrders.GET("", sales.List)
		salesOrders.GET("/:id", sales.Get)
		salesOrders.POST("", salesWrite, sales.Create)
		salesOrders.PATCH("/:id", salesWrite, sales.Update)
		salesOrders.DELETE("/:id", salesWrite, sales.Delete)
		salesOrders.POST("/:id/transitions/:action", middleware.RequireAction(permissions.ResourceSalesOrder), sales.Transition)
	}

	pipelineHandler := handlers.NewPipelineHandler(pipelineSvc)
	pipelineWrite := middleware.RequireResource(permissions.ResourcePipeline)
	pipelines := api.Group("/pipelines")
	{
		pipelines.GET("", pipelineHandler.List)
		pipelines.GET("/:id", pipelineHandler.Get)
		pipelines.POST("", pipelineWrite, pipelineHandler.Create)
		pipelines.DELETE("/:id", pipelineWrite, pipelineHandler.Delete)
		pipelines.POST("/:id/resync", pipelineHandler.Resync)
	}

	registerSubOrderRoutes(api, pipelines, "/purchase-orders", handlers.NewPurchaseOrderHandler(purchaseSvc))
	registerSubOrderRoutes(api, pipelines, "/production-orders", handlers.NewProductionOrderHandler(productionSvc))
	registerSubOrderRoutes(api, pipelines, "/outbound-orders", handlers.NewOutboundOrderHandler(outboundSvc))
	return nil
}

// registerSubOrderRoutes mounts the flat routes of one sub-order kind and its
// list and create routes nested under a pipeline.
func registerSubOrderRoutes[T any, P services.SubOrderPtr[T]](api, pipelines *gin.RouterGroup, path string, h *handlers.SubOrderHandler[T, P]) {
	resource := h.Resource()
	write := middleware.RequireResource(resource)

	group := api.Group(path)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", write, h.Create)
		group.PATCH("/:id", write, h.Update)
		group.DELETE("/:id", write, h.Delete)
		group.POST("/:id/transitions/:action", middleware.RequireAction(resource), h.Transition)
		group.POST("/bulk-status", middleware.RequireAdmin(), h.BulkStatus)
	}

	pipelines.GET("/:id"+path, h.ListForPipeline)
	pipelines.POST("/:id"+path, write, h.CreateForPipeline)
}
