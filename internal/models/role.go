package models

import "strings"

// Role is the single business role attached to a user.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSale       Role = "SALE"
	RoleProduction Role = "PRODUCTION"
	RoleWarehouse  Role = "WAREHOUSE"
	RolePurchase   Role = "PURCHASE"
)

// Roles lists every known role in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleSale, RolePurchase, RoleProduction, RoleWarehouse}
}

// ParseRole normalises free-form input into a known role.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	for _, known := range Roles() {
		if role == known {
			return role, true
		}
	}
	return "", false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}
