package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/api"
	"github.com/charlesng35/tradeflow/internal/app"
	"github.com/charlesng35/tradeflow/internal/app/maintenance"
	iauth "github.com/charlesng35/tradeflow/internal/auth"
	"github.com/charlesng35/tradeflow/internal/database"
	"github.com/charlesng35/tradeflow/internal/middleware"
	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Downloads *services.DownloadService
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, the export queue, maintenance jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	auditSvc, err := services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}
	prefSvc, err := services.NewColumnPreferenceService(stack.DB, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise preference service: %w", err)
	}

	stack.Downloads, err = services.NewDownloadService(stack.DB, cfg.Downloads.ExporterConfig(), prefSvc, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise download service: %w", err)
	}
	if err := stack.Downloads.Start(ctx); err != nil {
		return nil, fmt.Errorf("start export workers: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Downloads,
		maintenance.WithDownloadRetention(cfg.Downloads.Retention),
		maintenance.WithDownloadSchedule(cfg.Downloads.CleanupSchedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.RateStore = middleware.NewMemoryRateStore()

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, stack.Downloads, stack.RateStore)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Downloads != nil {
		if err := s.Downloads.Stop(ctx); err != nil {
			log.Warn("export workers did not stop cleanly", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := cfg.Database.Connection()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	seeded, err := database.AutoMigrateAndSeed(db, cfg.Bootstrap.Seed())
	if err != nil {
		closeDatabase(db, log)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}
	if seeded != nil && seeded.AdminCreated {
		fields := []zap.Field{zap.String("username", cfg.Bootstrap.AdminUsername), zap.String("tenant_id", seeded.TenantID)}
		if seeded.GeneratedPassword != "" {
			// Printed once so the operator can sign in; it is never stored in clear text.
			fields = append(fields, zap.String("generated_password", seeded.GeneratedPassword))
		}
		log.Warn("bootstrap administrator created", fields...)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
