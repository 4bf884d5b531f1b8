package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/database"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
)

// ListOptions controls pagination and filtering of list endpoints.
type ListOptions struct {
	Page     int
	PerPage  int
	Status   string
	Search   string
	From     *time.Time
	To       *time.Time
	Pipeline string
}

func (o ListOptions) normalised() ListOptions {
	if o.Page <= 0 {
		o.Page = 1
	}
	if o.PerPage <= 0 || o.PerPage > 200 {
		o.PerPage = 20
	}
	o.Status = strings.ToUpper(strings.TrimSpace(o.Status))
	o.Search = strings.TrimSpace(o.Search)
	return o
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// requireActor rejects anonymous or incomplete actors.
func requireActor(actor auditctx.Actor) error {
	if !actor.Valid() {
		return apperrors.ErrUnauthorized
	}
	return nil
}

// tenantDB returns a query handle scoped to the actor's tenant.
func tenantDB(db *gorm.DB, ctx context.Context, actor auditctx.Actor) *gorm.DB {
	return db.WithContext(ctx).Scopes(database.ScopeTenant(actor.TenantID))
}

// generateNumber builds a readable document number such as SO-20240131-1A2B3C.
func generateNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return prefix + "-" + now.UTC().Format("20060102") + "-" + suffix
}

func normaliseIDs(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// applyCreatedRange restricts query to records created within opts.From and opts.To.
func applyCreatedRange(query *gorm.DB, opts ListOptions) *gorm.DB {
	if opts.From != nil {
		query = query.Where("created_at >= ?", *opts.From)
	}
	if opts.To != nil {
		query = query.Where("created_at <= ?", *opts.To)
	}
	return query
}
