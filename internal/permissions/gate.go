package permissions

import "github.com/charlesng35/tradeflow/internal/models"

// AuthorizeAction gates a transition on a resource. The role must hold the
// action and be allowed to write the resource type.
func AuthorizeAction(role models.Role, resource ResourceType, action Action) bool {
	if !Actions.Allowed(role, action) {
		return false
	}
	return Resources.Allowed(role, resource)
}

// AuthorizeResource gates create, update and delete of a resource type.
func AuthorizeResource(role models.Role, resource ResourceType) bool {
	return Resources.Allowed(role, resource)
}

// AuthorizePayment reports whether role may see or manage payments of category.
func AuthorizePayment(role models.Role, category models.PaymentCategory) bool {
	return PaymentCategories.Allowed(role, category)
}

// AllowedPaymentCategories resolves the categories visible to role. The
// wildcard expands to every known category.
func AllowedPaymentCategories(role models.Role) []models.PaymentCategory {
	grant, ok := PaymentCategories.Grant(role)
	if !ok {
		return nil
	}
	if grant.IsAll() {
		return models.PaymentCategories()
	}
	return grant.Keys()
}

// AllowedActions returns the catalog entries role may perform, ordered by resource then action.
func AllowedActions(role models.Role) []*Definition {
	var out []*Definition
	for _, def := range Catalog() {
		if AuthorizeAction(role, def.Resource, def.Action) {
			out = append(out, def)
		}
	}
	return out
}
