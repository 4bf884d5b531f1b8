package models

import "time"

// User is an operator of a tenant. Each user carries exactly one role.
type User struct {
	BaseModel

	TenantID string  `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Tenant   *Tenant `json:"tenant,omitempty"`

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `gorm:"size:32;not null;index" json:"role"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at"`
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}
