package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/database"
	"github.com/charlesng35/tradeflow/internal/models"
)

// TestDBOption customises the behaviour of MustOpenTestDB.
type TestDBOption func(*testDBConfig)

type testDBConfig struct {
	autoMigrate bool
	seedData    bool
}

// WithAutoMigrate enables automatic schema migration after opening the test database.
func WithAutoMigrate() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
	}
}

// WithSeedData ensures migrations are applied and the bootstrap tenant and admin exist.
func WithSeedData() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
		cfg.seedData = true
	}
}

// AdminPassword is the password of the seeded administrator.
const AdminPassword = "admin-password"

// MustOpenTestDB opens an isolated in-memory SQLite database for tests, applying optional migrations/seed data.
// The returned connection is automatically closed via t.Cleanup.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	cfg := testDBConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	if cfg.seedData {
		_, err := database.AutoMigrateAndSeed(db, database.Seed{
			TenantName:    "Test Tenant",
			AdminUsername: "admin",
			AdminEmail:    "admin@example.com",
			AdminPassword: AdminPassword,
		})
		require.NoError(t, err)
	} else if cfg.autoMigrate {
		require.NoError(t, database.AutoMigrate(db))
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// MustCreateTenant inserts a tenant named name.
func MustCreateTenant(t *testing.T, db *gorm.DB, name string) *models.Tenant {
	t.Helper()

	tenant := &models.Tenant{Name: name}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

// MustCreateUser inserts an active user of tenantID with role.
func MustCreateUser(t *testing.T, db *gorm.DB, tenantID string, username string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		TenantID: tenantID,
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
