package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/handlers"
	"github.com/charlesng35/tradeflow/internal/services"
)

// registerWorkspaceRoutes mounts the per user preferences, metadata and dashboard routes.
func registerWorkspaceRoutes(api *gin.RouterGroup, db *gorm.DB, audit *services.AuditService) error {
	prefSvc, err := services.NewColumnPreferenceService(db, audit)
	if err != nil {
		return err
	}
	metaSvc, err := services.NewMetadataService(db)
	if err != nil {
		return err
	}
	dashboardSvc, err := services.NewDashboardService(db)
	if err != nil {
		return err
	}

	prefs := handlers.NewPreferenceHandler(prefSvc)
	columns := api.Group("/preferences/columns")
	{
		columns.GET("/:table", prefs.GetColumns)
		columns.PUT("/:table", prefs.PutColumns)
		columns.DELETE("/:table", prefs.ResetColumns)
	}

	meta := handlers.NewMetaHandler(metaSvc)
	api.GET("/meta/content-types", meta.ContentTypes)
	api.GET("/meta/fields/:resource", meta.Fields)

	dashboard := handlers.NewDashboardHandler(dashboardSvc)
	api.GET("/dashboard/overview", dashboard.Overview)
	api.GET("/dashboard/calendar", dashboard.Calendar)
	return nil
}
