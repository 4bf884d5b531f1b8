package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/handlers"
	"github.com/charlesng35/tradeflow/internal/services"
)

func registerDownloadRoutes(api *gin.RouterGroup, svc *services.DownloadService) {
	handler := handlers.NewDownloadHandler(svc)

	downloads := api.Group("/downloads")
	{
		downloads.GET("", handler.List)
		downloads.POST("", handler.Create)
		downloads.GET("/:id", handler.Get)
		downloads.DELETE("/:id", handler.Delete)
		downloads.GET("/:id/file", handler.File)
	}
}
