package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/tradeflow/pkg/crypto"
)

const jwtSecretBytes = 48

const (
	defaultDownloadsDir    = "./data/downloads"
	defaultCleanupSchedule = "@daily"
	defaultBootstrapAdmin  = "admin"
	defaultBootstrapTenant = "Tradeflow"
	generatedJWTSecretKey  = "auth.jwt.secret"
)

// ApplyRuntimeDefaults fills values the server cannot start without when no
// configuration file supplied them. The returned map names generated secrets
// so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	generated := make(map[string]bool)
	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated[generatedJWTSecretKey] = true
	}

	d := &cfg.Downloads
	d.Dir = orDefault(strings.TrimSpace(d.Dir), defaultDownloadsDir)
	d.CleanupSchedule = orDefault(strings.TrimSpace(d.CleanupSchedule), defaultCleanupSchedule)
	if d.Retention <= 0 {
		d.Retention = DefaultDownloadRetention
	}

	b := &cfg.Bootstrap
	b.AdminUsername = orDefault(strings.TrimSpace(b.AdminUsername), defaultBootstrapAdmin)
	b.TenantName = orDefault(strings.TrimSpace(b.TenantName), defaultBootstrapTenant)

	return generated, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
