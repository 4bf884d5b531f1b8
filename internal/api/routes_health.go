package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/app"
	"github.com/charlesng35/tradeflow/internal/handlers"
	"github.com/charlesng35/tradeflow/internal/monitoring"
	"github.com/charlesng35/tradeflow/internal/monitoring/checks"
)

const readinessTimeout = 2 * time.Second

func newHealthManager(db *gorm.DB, cfg *app.Config) *monitoring.HealthManager {
	manager := monitoring.NewHealthManager()
	manager.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(checks.Database(db, readinessTimeout))
	manager.RegisterReadiness(checks.DownloadDir(cfg.Downloads.ExporterConfig().Dir))
	manager.RegisterReadiness(checks.Maintenance(monitoring.DefaultJobs(), 0))
	return manager
}

func registerHealthRoutes(r *gin.Engine, manager *monitoring.HealthManager) {
	h := handlers.NewHealthHandler(manager)
	r.GET("/health", h.Health)
	r.GET("/health/live", h.Live)
	r.GET("/health/ready", h.Ready)
	r.GET("/api/health", h.Health)
}

func registerMetricsRoutes(r *gin.Engine, cfg app.MonitoringConfig) {
	if !cfg.Prometheus.Enabled {
		return
	}
	endpoint := cfg.Prometheus.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
