package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/permissions"
	"github.com/charlesng35/tradeflow/internal/statussync"
	"github.com/charlesng35/tradeflow/internal/workflow"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
	"github.com/charlesng35/tradeflow/pkg/logger"
)

// SalesOrderInput carries writable sales order fields. Nil pointers are left unchanged on update.
type SalesOrderInput struct {
	Number   *string
	Customer *string
	Amount   *decimal.Decimal
	Currency *string
	DueDate  *time.Time
	Notes    *string
}

// SalesOrderService manages sales orders and the pipelines they open.
type SalesOrderService struct {
	db     *gorm.DB
	syncer *statussync.Syncer
	audit  *AuditService
	now    func() time.Time
	log    *zap.Logger
}

// NewSalesOrderService constructs a SalesOrderService.
func NewSalesOrderService(db *gorm.DB, syncer *statussync.Syncer, audit *AuditService) (*SalesOrderService, error) {
	if db == nil {
		return nil, errors.New("sales order service: db is required")
	}
	if syncer == nil {
		return nil, errors.New("sales order service: syncer is required")
	}
	return &SalesOrderService{db: db, syncer: syncer, audit: audit, now: time.Now, log: logger.WithModule("sales_orders")}, nil
}

// List returns the tenant's sales orders.
func (s *SalesOrderService) List(ctx context.Context, actor auditctx.Actor, opts ListOptions) ([]models.SalesOrder, int64, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	opts = opts.normalised()

	query := tenantDB(s.db, ctx, actor).Model(&models.SalesOrder{})
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Search != "" {
		like := "%" + strings.ToLower(opts.Search) + "%"
		query = query.Where("LOWER(number) LIKE ? OR LOWER(customer) LIKE ?", like, like)
	}

	query = applyCreatedRange(query, opts)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("sales order service: count: %w", err)
	}

	var orders []models.SalesOrder
	if err := query.Order("created_at DESC").
		Offset((opts.Page - 1) * opts.PerPage).
		Limit(opts.PerPage).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("sales order service: list: %w", err)
	}
	return orders, total, nil
}

// Get loads one sales order of the actor's tenant.
func (s *SalesOrderService) Get(ctx context.Context, actor auditctx.Actor, id string) (*models.SalesOrder, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var order models.SalesOrder
	if err := tenantDB(s.db, ctx, actor).First(&order, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return nil, notFound(err, "Sales order")
	}
	return &order, nil
}

// Create stores a new DRAFT sales order.
func (s *SalesOrderService) Create(ctx context.Context, actor auditctx.Actor, input SalesOrderInput) (*models.SalesOrder, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	order := &models.SalesOrder{Status: workflow.MustFor(models.KindSalesOrder).Initial()}
	order.TenantID = actor.TenantID
	applySalesOrderInput(order, input)
	if strings.TrimSpace(order.Customer) == "" {
		return nil, apperrors.NewValidation(map[string]string{"customer": "customer is required"})
	}
	if order.Amount.IsNegative() {
		return nil, apperrors.NewValidation(map[string]string{"amount": "amount must be zero or greater"})
	}
	if order.Number == "" {
		order.Number = generateNumber("SO", s.now())
	}

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("sales order service: create: %w", err)
	}
	return order, nil
}

// Update changes editable fields of a sales order. Status only changes through
// Transition; an update racing a transition fails with a conflict.
func (s *SalesOrderService) Update(ctx context.Context, actor auditctx.Actor, id string, input SalesOrderInput) (*models.SalesOrder, error) {
	ctx = ensureContext(ctx)
	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if order.Status == models.StatusCancelled {
		return nil, apperrors.NewConflict("cancelled sales orders cannot be edited")
	}
	status := order.Status

	applySalesOrderInput(order, input)
	if strings.TrimSpace(order.Customer) == "" {
		return nil, apperrors.NewValidation(map[string]string{"customer": "customer is required"})
	}
	if order.Amount.IsNegative() {
		return nil, apperrors.NewValidation(map[string]string{"amount": "amount must be zero or greater"})
	}

	res := s.db.WithContext(ctx).Model(order).
		Where("status = ?", status).
		Select("*").Omit("status").
		Updates(order)
	if res.Error != nil {
		return nil, fmt.Errorf("sales order service: update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrConcurrentUpdate
	}
	order.Status = status
	return order, nil
}

// Delete removes a DRAFT or CANCELLED sales order. Pipelines and payments
// that referenced it keep their data and lose the link.
func (s *SalesOrderService) Delete(ctx context.Context, actor auditctx.Actor, id string) error {
	ctx = ensureContext(ctx)
	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if order.Status == models.StatusConfirmed {
		return apperrors.NewConflict("confirmed sales orders must be cancelled before deletion")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("status = ?", order.Status).Delete(order)
		if res.Error != nil {
			return fmt.Errorf("sales order service: delete: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		for _, model := range []any{&models.Pipeline{}, &models.Payment{}} {
			if err := tx.Model(model).
				Where("tenant_id = ? AND sales_order_id = ?", actor.TenantID, order.ID).
				UpdateColumn("sales_order_id", nil).Error; err != nil {
				return fmt.Errorf("sales order service: unlink: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.WithTenant(s.log, actor.TenantID).Info("sales order deleted", zap.String("id", order.ID))
	return nil
}

// Transition applies a workflow action. Confirming opens a pipeline when the
// order has none; cancelling also cancels the pipeline.
func (s *SalesOrderService) Transition(ctx context.Context, actor auditctx.Actor, id string, action permissions.Action) (*models.SalesOrder, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !permissions.AuthorizeAction(actor.Role, permissions.ResourceSalesOrder, action) {
		return nil, apperrors.ErrActionForbidden
	}

	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	next, err := workflow.MustFor(models.KindSalesOrder).Next(order.Status, action)
	if err != nil {
		return nil, transitionError(err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(order).Where("status = ?", from).Update("status", next)
		if res.Error != nil {
			return fmt.Errorf("update status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		order.Status = next

		var pipeline models.Pipeline
		err := tx.Where("tenant_id = ? AND sales_order_id = ?", actor.TenantID, order.ID).First(&pipeline).Error
		hasPipeline := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load pipeline: %w", err)
		}

		switch next {
		case models.StatusConfirmed:
			if hasPipeline {
				return nil
			}
			salesOrderID := order.ID
			pipeline = models.Pipeline{
				Number:       generateNumber("PL", s.now()),
				Title:        order.Customer,
				SalesOrderID: &salesOrderID,
				DueDate:      order.DueDate,
				Status:       models.StatusPending,
			}
			pipeline.TenantID = actor.TenantID
			if err := tx.Create(&pipeline).Error; err != nil {
				return fmt.Errorf("create pipeline: %w", err)
			}
		case models.StatusCancelled:
			if hasPipeline {
				return s.syncer.SetPipelineStatus(ctx, tx, pipeline.ID, models.StatusCancelled)
			}
		}
		return nil
	})
	if err != nil {
		recordAudit(s.audit, ctx, actor, AuditEntry{
			Action:   "sales_order." + string(action),
			Resource: order.ID,
			Result:   "failure",
			Metadata: map[string]any{"error": err.Error()},
		})
		if errors.Is(err, ErrConcurrentUpdate) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("sales order service: transition: %w", err)
	}

	logger.WithTenant(s.log, actor.TenantID).Info("sales order transitioned",
		zap.String("id", order.ID), zap.String("action", string(action)), zap.String("status", string(next)))
	recordAudit(s.audit, ctx, actor, AuditEntry{
		Action:   "sales_order." + string(action),
		Resource: order.ID,
		Result:   "success",
		Metadata: map[string]any{"from": string(from), "to": string(next), "number": order.Number},
	})
	return order, nil
}

func applySalesOrderInput(order *models.SalesOrder, input SalesOrderInput) {
	if input.Number != nil {
		order.Number = strings.TrimSpace(*input.Number)
	}
	if input.Customer != nil {
		order.Customer = strings.TrimSpace(*input.Customer)
	}
	if input.Amount != nil {
		order.Amount = *input.Amount
	}
	if input.Currency != nil {
		order.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if input.DueDate != nil {
		due := *input.DueDate
		order.DueDate = &due
	}
	if input.Notes != nil {
		order.Notes = strings.TrimSpace(*input.Notes)
	}
}
