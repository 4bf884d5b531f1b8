package app

import (
	"strings"

	"github.com/charlesng35/tradeflow/internal/database"
)

// Connection converts the configured driver section into database options.
func (c DatabaseConfig) Connection() database.Config {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	cfg := database.Config{
		Driver: driver,
		Path:   c.Path,
		DSN:    c.DSN,
	}

	var auth DBAuthConfig
	switch driver {
	case "postgres", "postgresql":
		auth = c.Postgres
	case "mysql":
		auth = c.MySQL
	default:
		return cfg
	}

	cfg.Host = auth.Host
	cfg.Port = auth.Port
	cfg.Name = auth.Database
	cfg.User = auth.Username
	cfg.Password = auth.Password
	cfg.Options = auth.Options
	return cfg
}

// Seed converts the bootstrap section into seed options.
func (c BootstrapConfig) Seed() database.Seed {
	return database.Seed{
		TenantName:    c.TenantName,
		AdminUsername: c.AdminUsername,
		AdminEmail:    c.AdminEmail,
		AdminPassword: c.AdminPassword,
	}
}
