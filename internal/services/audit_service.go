package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/pkg/logger"
)

// Audit results.
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditEntry captures a single audit event to persist.
type AuditEntry struct {
	Action   string
	Resource string
	Result   string
	Metadata map[string]any
}

// AuditFilters narrows audit queries. An Action ending in ".*" matches every
// action with that prefix, so "sales_order.*" covers every sales order event.
type AuditFilters struct {
	UserID   string
	Action   string
	Result   string
	Resource string
	Since    *time.Time
	Until    *time.Time
}

// AuditListOptions controls pagination and filtering for audit queries.
type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService persists and retrieves audit log entries.
type AuditService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, log: logger.WithModule("audit")}, nil
}

// Log stores an audit entry on behalf of actor. The client address and agent
// of the actor are folded into the metadata.
func (s *AuditService) Log(ctx context.Context, actor auditctx.Actor, entry AuditEntry) error {
	action := strings.TrimSpace(entry.Action)
	result := strings.TrimSpace(entry.Result)
	switch {
	case action == "":
		return errors.New("audit service: action is required")
	case result != AuditSuccess && result != AuditFailure:
		return fmt.Errorf("audit service: unknown result %q", entry.Result)
	}

	metadata := make(map[string]any, len(entry.Metadata)+2)
	for key, value := range entry.Metadata {
		metadata[key] = value
	}
	if actor.IPAddress != "" {
		metadata["ip_address"] = actor.IPAddress
	}
	if actor.UserAgent != "" {
		metadata["user_agent"] = actor.UserAgent
	}

	row := models.AuditLog{
		TenantID: actor.TenantID,
		Username: strings.TrimSpace(actor.Username),
		Action:   action,
		Resource: strings.TrimSpace(entry.Resource),
		Result:   result,
		Metadata: metadata,
	}
	if id := strings.TrimSpace(actor.UserID); id != "" {
		row.UserID = &id
	}

	if err := s.db.WithContext(ensureContext(ctx)).Create(&row).Error; err != nil {
		return fmt.Errorf("audit service: create log: %w", err)
	}
	return nil
}

// List returns the tenant's audit logs, newest first.
func (s *AuditService) List(ctx context.Context, actor auditctx.Actor, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}

	page := max(opts.Page, 1)
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := applyAuditFilters(tenantDB(s.db, ctx, actor).Model(&models.AuditLog{}), opts.Filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count logs: %w", err)
	}

	var results []models.AuditLog
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: list logs: %w", err)
	}
	return results, total, nil
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		if prefix, ok := strings.CutSuffix(action, ".*"); ok {
			query = query.Where("action LIKE ?", strings.ReplaceAll(prefix, "%", "")+".%")
		} else {
			query = query.Where("action = ?", action)
		}
	}
	if filters.Result != "" {
		query = query.Where("result = ?", filters.Result)
	}
	if filters.Resource != "" {
		query = query.Where("resource = ?", filters.Resource)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}

// recordAudit stores entry without failing the calling operation; write
// errors are logged.
func recordAudit(audit *AuditService, ctx context.Context, actor auditctx.Actor, entry AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Log(ctx, actor, entry); err != nil {
		audit.log.Warn("audit write failed",
			zap.String("action", entry.Action),
			zap.String("tenant_id", actor.TenantID),
			zap.Error(err),
		)
	}
}
