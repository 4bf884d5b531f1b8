package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides shared fields for all persistent models.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures UUID identifiers are generated automatically.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// GetID returns the primary key.
func (m *BaseModel) GetID() string { return m.ID }

// TenantModel is embedded by every record owned by a tenant.
type TenantModel struct {
	BaseModel
	TenantID string `gorm:"type:uuid;index;not null" json:"tenant_id"`
}

// GetTenantID returns the owning tenant.
func (m *TenantModel) GetTenantID() string { return m.TenantID }

// SetTenantID assigns the owning tenant.
func (m *TenantModel) SetTenantID(id string) { m.TenantID = id }

// Tenant is an isolated customer account.
type Tenant struct {
	BaseModel

	Name string `gorm:"uniqueIndex;not null" json:"name"`
}
