package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/app"
	iauth "github.com/charlesng35/tradeflow/internal/auth"
	"github.com/charlesng35/tradeflow/internal/handlers"
	"github.com/charlesng35/tradeflow/internal/middleware"
	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/internal/statussync"
	"github.com/charlesng35/tradeflow/pkg/logger"
)

// NewRouter builds the Gin engine, wires middleware and registers every route.
// The download service is owned by the caller, which starts and stops its queue.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, downloads *services.DownloadService, rateStore middleware.RateStore) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if downloads == nil {
		return nil, fmt.Errorf("download service must be provided")
	}
	if rateStore == nil {
		rateStore = middleware.NewMemoryRateStore()
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))
	r.Use(middleware.RateLimit(rateStore, cfg.Server.RequestRateLimit, time.Minute))

	registerHealthRoutes(r, newHealthManager(db, cfg))
	registerMetricsRoutes(r, cfg.Monitoring)

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	syncer, err := statussync.New(db, statussync.WithLogger(logger.WithModule("statussync")))
	if err != nil {
		return nil, err
	}
	userSvc, err := services.NewUserService(db, jwt, auditSvc)
	if err != nil {
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(userSvc)
	r.POST("/api/auth/login", middleware.LoginRateLimit(rateStore, cfg.Server.LoginRateLimit, time.Minute), authHandler.Login)

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(userSvc))
	api.GET("/users/me", authHandler.Me)

	if err := registerOrderRoutes(api, db, syncer, auditSvc); err != nil {
		return nil, err
	}
	if err := registerPaymentRoutes(api, db, auditSvc); err != nil {
		return nil, err
	}
	registerDownloadRoutes(api, downloads)
	if err := registerWorkspaceRoutes(api, db, auditSvc); err != nil {
		return nil, err
	}
	registerAuditRoutes(api, auditSvc)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
