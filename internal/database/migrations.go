package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/pkg/crypto"
)

const generatedPasswordBytes = 12

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.SalesOrder{},
		&models.Pipeline{},
		&models.PurchaseOrder{},
		&models.ProductionOrder{},
		&models.OutboundOrder{},
		&models.Payment{},
		&models.ColumnPreference{},
		&models.DownloadTask{},
		&models.AuditLog{},
	)
}

// Seed describes the first tenant and administrator created on an empty database.
type Seed struct {
	TenantName    string
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// SeedResult reports what SeedData created.
type SeedResult struct {
	TenantID          string
	AdminCreated      bool
	GeneratedPassword string
}

// SeedData ensures the bootstrap tenant exists and creates an administrator when
// the database has no users yet. A random password is generated when none is configured.
func SeedData(db *gorm.DB, seed Seed) (*SeedResult, error) {
	name := strings.TrimSpace(seed.TenantName)
	if name == "" {
		name = "Default"
	}

	tenant := models.Tenant{Name: name}
	if err := db.Where(models.Tenant{Name: name}).FirstOrCreate(&tenant).Error; err != nil {
		return nil, fmt.Errorf("ensure tenant: %w", err)
	}
	result := &SeedResult{TenantID: tenant.ID}

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if users > 0 {
		return result, nil
	}

	username := strings.TrimSpace(seed.AdminUsername)
	if username == "" {
		return nil, errors.New("bootstrap admin username is required")
	}
	email := strings.TrimSpace(seed.AdminEmail)
	if email == "" {
		email = username + "@localhost"
	}

	password := seed.AdminPassword
	if strings.TrimSpace(password) == "" {
		generated, err := crypto.GenerateToken(generatedPasswordBytes)
		if err != nil {
			return nil, fmt.Errorf("generate admin password: %w", err)
		}
		password = generated
		result.GeneratedPassword = generated
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		TenantID: tenant.ID,
		Username: username,
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}

	result.AdminCreated = true
	return result, nil
}
