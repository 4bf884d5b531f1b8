package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/permissions"
	"github.com/charlesng35/tradeflow/internal/statussync"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
)

// PipelineInput carries the writable fields of a manually created pipeline.
type PipelineInput struct {
	Number       *string
	Title        *string
	SalesOrderID *string
	DueDate      *time.Time
}

// PipelineService manages pipelines. Their status is only ever derived.
type PipelineService struct {
	db     *gorm.DB
	syncer *statussync.Syncer
	audit  *AuditService
	now    func() time.Time
}

// NewPipelineService constructs a PipelineService.
func NewPipelineService(db *gorm.DB, syncer *statussync.Syncer, audit *AuditService) (*PipelineService, error) {
	if db == nil {
		return nil, errors.New("pipeline service: db is required")
	}
	if syncer == nil {
		return nil, errors.New("pipeline service: syncer is required")
	}
	return &PipelineService{db: db, syncer: syncer, audit: audit, now: time.Now}, nil
}

// List returns the tenant's pipelines without sub-orders.
func (s *PipelineService) List(ctx context.Context, actor auditctx.Actor, opts ListOptions) ([]models.Pipeline, int64, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	opts = opts.normalised()

	query := tenantDB(s.db, ctx, actor).Model(&models.Pipeline{})
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Search != "" {
		like := "%" + strings.ToLower(opts.Search) + "%"
		query = query.Where("LOWER(number) LIKE ? OR LOWER(title) LIKE ?", like, like)
	}

	query = applyCreatedRange(query, opts)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("pipeline service: count: %w", err)
	}

	var pipelines []models.Pipeline
	if err := query.Order("created_at DESC").
		Offset((opts.Page - 1) * opts.PerPage).
		Limit(opts.PerPage).
		Find(&pipelines).Error; err != nil {
		return nil, 0, fmt.Errorf("pipeline service: list: %w", err)
	}
	return pipelines, total, nil
}

// Get loads a pipeline with its sales order and sub-orders.
func (s *PipelineService) Get(ctx context.Context, actor auditctx.Actor, id string) (*models.Pipeline, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var pipeline models.Pipeline
	err := tenantDB(s.db, ctx, actor).
		Preload("SalesOrder").
		Preload("PurchaseOrders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("ProductionOrders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("OutboundOrders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		First(&pipeline, "id = ?", strings.TrimSpace(id)).Error
	if err != nil {
		return nil, notFound(err, "Pipeline")
	}
	return &pipeline, nil
}

// Create opens a pipeline manually, optionally linked to a sales order of the tenant.
func (s *PipelineService) Create(ctx context.Context, actor auditctx.Actor, input PipelineInput) (*models.Pipeline, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	pipeline := &models.Pipeline{Status: models.StatusPending}
	pipeline.TenantID = actor.TenantID
	if input.Number != nil {
		pipeline.Number = strings.TrimSpace(*input.Number)
	}
	if pipeline.Number == "" {
		pipeline.Number = generateNumber("PL", s.now())
	}
	if input.Title != nil {
		pipeline.Title = strings.TrimSpace(*input.Title)
	}
	if input.DueDate != nil {
		due := *input.DueDate
		pipeline.DueDate = &due
	}

	if salesOrderID := trimmedPtr(input.SalesOrderID); salesOrderID != nil {
		var order models.SalesOrder
		if err := tenantDB(s.db, ctx, actor).First(&order, "id = ?", *salesOrderID).Error; err != nil {
			return nil, notFound(err, "Sales order")
		}
		var existing int64
		if err := tenantDB(s.db, ctx, actor).Model(&models.Pipeline{}).Where("sales_order_id = ?", order.ID).Count(&existing).Error; err != nil {
			return nil, fmt.Errorf("pipeline service: check sales order: %w", err)
		}
		if existing > 0 {
			return nil, apperrors.NewConflict("sales order already has a pipeline")
		}
		pipeline.SalesOrderID = salesOrderID
		if pipeline.Title == "" {
			pipeline.Title = order.Customer
		}
		if pipeline.DueDate == nil {
			pipeline.DueDate = order.DueDate
		}
	}

	if err := s.db.WithContext(ctx).Create(pipeline).Error; err != nil {
		return nil, fmt.Errorf("pipeline service: create: %w", err)
	}
	return pipeline, nil
}

// Delete removes a pipeline and unlinks its sub-orders.
func (s *PipelineService) Delete(ctx context.Context, actor auditctx.Actor, id string) error {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return err
	}

	var pipeline models.Pipeline
	if err := tenantDB(s.db, ctx, actor).First(&pipeline, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return notFound(err, "Pipeline")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.PurchaseOrder{}, &models.ProductionOrder{}, &models.OutboundOrder{}} {
			if err := tx.Model(model).Where("pipeline_id = ?", pipeline.ID).UpdateColumn("pipeline_id", nil).Error; err != nil {
				return fmt.Errorf("pipeline service: unlink sub-orders: %w", err)
			}
		}
		if err := tx.Delete(&pipeline).Error; err != nil {
			return fmt.Errorf("pipeline service: delete: %w", err)
		}
		return nil
	})
}

// Resync recomputes the pipeline status from its sub-orders.
func (s *PipelineService) Resync(ctx context.Context, actor auditctx.Actor, id string) (*models.Pipeline, bool, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, false, err
	}
	if !permissions.AuthorizeAction(actor.Role, permissions.ResourcePipeline, permissions.ActionResync) {
		return nil, false, apperrors.ErrActionForbidden
	}

	var pipeline models.Pipeline
	if err := tenantDB(s.db, ctx, actor).First(&pipeline, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return nil, false, notFound(err, "Pipeline")
	}

	changed, err := s.syncer.SyncPipeline(ctx, nil, pipeline.ID)
	if err != nil {
		return nil, false, fmt.Errorf("pipeline service: resync: %w", err)
	}

	recordAudit(s.audit, ctx, actor, AuditEntry{
		Action:   "pipeline.resync",
		Resource: pipeline.ID,
		Result:   "success",
		Metadata: map[string]any{"changed": changed},
	})

	updated, err := s.Get(ctx, actor, pipeline.ID)
	if err != nil {
		return nil, false, err
	}
	return updated, changed, nil
}
