package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDatabaseConnectionUsesDriverSection(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "Postgres",
		Postgres: DBAuthConfig{
			Host:     "db",
			Port:     5433,
			Database: "tradeflow",
			Username: "svc",
			Password: "pw",
			Options:  map[string]string{"sslmode": "require"},
		},
		MySQL: DBAuthConfig{Host: "ignored"},
	}

	conn := cfg.Connection()
	require.Equal(t, "postgres", conn.Driver)
	require.Equal(t, "db", conn.Host)
	require.Equal(t, 5433, conn.Port)
	require.Equal(t, "tradeflow", conn.Name)
	require.Equal(t, "svc", conn.User)
	require.Equal(t, "require", conn.Options["sslmode"])
}

func TestDatabaseConnectionSQLiteKeepsPath(t *testing.T) {
	conn := DatabaseConfig{Driver: "sqlite", Path: "./data/x.sqlite", MySQL: DBAuthConfig{Host: "ignored"}}.Connection()
	require.Equal(t, "./data/x.sqlite", conn.Path)
	require.Empty(t, conn.Host)
}

func TestBootstrapSeed(t *testing.T) {
	seed := BootstrapConfig{TenantName: "Acme", AdminUsername: "root"}.Seed()
	require.Equal(t, "Acme", seed.TenantName)
	require.Equal(t, "root", seed.AdminUsername)
}
