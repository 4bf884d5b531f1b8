package app

import (
	"strings"

	"github.com/charlesng35/tradeflow/internal/auth"
	"github.com/charlesng35/tradeflow/internal/exports"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// ExporterConfig converts DownloadsConfig into export worker parameters.
func (c DownloadsConfig) ExporterConfig() exports.Config {
	cfg := exports.Config{
		Dir:       strings.TrimSpace(c.Dir),
		Workers:   c.Workers,
		QueueSize: c.QueueSize,
	}
	for _, format := range c.Formats {
		if f := exports.Format(strings.ToLower(strings.TrimSpace(format))); f != "" {
			cfg.Formats = append(cfg.Formats, f)
		}
	}
	return cfg.WithDefaults()
}
