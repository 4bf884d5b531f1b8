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
	"github.com/charlesng35/tradeflow/internal/permissions"
	"github.com/charlesng35/tradeflow/internal/statussync"
	"github.com/charlesng35/tradeflow/internal/workflow"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
	"github.com/charlesng35/tradeflow/pkg/logger"
)

// SubOrderPtr constrains the pointer types of purchase, production and outbound orders.
type SubOrderPtr[T any] interface {
	*T
	models.SubOrder
	models.TenantOwned
}

// Mutator applies request fields onto an order before it is written.
type Mutator[P any] func(P) error

// SubOrderService manages one kind of pipeline sub-order. Every write goes
// through statussync so the owning pipeline follows status changes.
type SubOrderService[T any, P SubOrderPtr[T]] struct {
	db      *gorm.DB
	syncer  *statussync.Syncer
	audit   *AuditService
	kind    models.OrderKind
	prefix  string
	machine *workflow.Machine
	now     func() time.Time
	log     *zap.Logger
}

// PurchaseOrderService manages purchase orders.
type PurchaseOrderService = SubOrderService[models.PurchaseOrder, *models.PurchaseOrder]

// ProductionOrderService manages production orders.
type ProductionOrderService = SubOrderService[models.ProductionOrder, *models.ProductionOrder]

// OutboundOrderService manages outbound orders.
type OutboundOrderService = SubOrderService[models.OutboundOrder, *models.OutboundOrder]

// NewPurchaseOrderService constructs the purchase order service.
func NewPurchaseOrderService(db *gorm.DB, syncer *statussync.Syncer, audit *AuditService) (*PurchaseOrderService, error) {
	return newSubOrderService[models.PurchaseOrder](db, syncer, audit, models.KindPurchaseOrder, "PO")
}

// NewProductionOrderService constructs the production order service.
func NewProductionOrderService(db *gorm.DB, syncer *statussync.Syncer, audit *AuditService) (*ProductionOrderService, error) {
	return newSubOrderService[models.ProductionOrder](db, syncer, audit, models.KindProductionOrder, "MO")
}

// NewOutboundOrderService constructs the outbound order service.
func NewOutboundOrderService(db *gorm.DB, syncer *statussync.Syncer, audit *AuditService) (*OutboundOrderService, error) {
	return newSubOrderService[models.OutboundOrder](db, syncer, audit, models.KindOutboundOrder, "OB")
}

func newSubOrderService[T any, P SubOrderPtr[T]](db *gorm.DB, syncer *statussync.Syncer, audit *AuditService, kind models.OrderKind, prefix string) (*SubOrderService[T, P], error) {
	if db == nil {
		return nil, fmt.Errorf("%s service: db is required", kind)
	}
	if syncer == nil {
		return nil, fmt.Errorf("%s service: syncer is required", kind)
	}
	machine, ok := workflow.For(kind)
	if !ok {
		return nil, fmt.Errorf("%s service: no workflow", kind)
	}
	return &SubOrderService[T, P]{
		db:      db,
		syncer:  syncer,
		audit:   audit,
		kind:    kind,
		prefix:  prefix,
		machine: machine,
		now:     time.Now,
		log:     logger.WithModule(string(kind)),
	}, nil
}

// Kind returns the order kind handled by the service.
func (s *SubOrderService[T, P]) Kind() models.OrderKind {
	return s.kind
}

// Resource returns the permission resource type of the kind.
func (s *SubOrderService[T, P]) Resource() permissions.ResourceType {
	return permissions.ResourceType(s.kind)
}

// List returns the tenant's orders, optionally restricted to one pipeline.
func (s *SubOrderService[T, P]) List(ctx context.Context, actor auditctx.Actor, opts ListOptions) ([]T, int64, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	opts = opts.normalised()

	query := tenantDB(s.db, ctx, actor).Model(new(T))
	if opts.Pipeline != "" {
		query = query.Where("pipeline_id = ?", opts.Pipeline)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Search != "" {
		query = query.Where("LOWER(number) LIKE ?", "%"+strings.ToLower(opts.Search)+"%")
	}

	query = applyCreatedRange(query, opts)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%s service: count: %w", s.kind, err)
	}

	var orders []T
	if err := query.Order("created_at DESC").
		Offset((opts.Page - 1) * opts.PerPage).
		Limit(opts.PerPage).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("%s service: list: %w", s.kind, err)
	}
	return orders, total, nil
}

// Get loads one order of the actor's tenant.
func (s *SubOrderService[T, P]) Get(ctx context.Context, actor auditctx.Actor, id string) (P, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	order := P(new(T))
	if err := tenantDB(s.db, ctx, actor).First(order, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return nil, notFound(err, s.label())
	}
	return order, nil
}

// Create stores a new order in its initial status, linked to pipelineID when given.
func (s *SubOrderService[T, P]) Create(ctx context.Context, actor auditctx.Actor, pipelineID *string, mutate Mutator[P]) (P, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	order := P(new(T))
	if mutate != nil {
		if err := mutate(order); err != nil {
			return nil, err
		}
	}
	order.SetTenantID(actor.TenantID)
	order.SetStatus(s.machine.Initial())
	if strings.TrimSpace(order.GetNumber()) == "" {
		order.SetNumber(generateNumber(s.prefix, s.now()))
	}

	ref, err := s.resolvePipeline(ctx, actor, pipelineID)
	if err != nil {
		return nil, err
	}
	order.SetPipelineRef(ref)

	if _, err := s.syncer.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("%s service: create: %w", s.kind, err)
	}
	return order, nil
}

// Update changes editable fields. The status is restored after mutate so it
// can only change through Transition, and the write fails with a conflict when
// a transition landed after the order was read.
func (s *SubOrderService[T, P]) Update(ctx context.Context, actor auditctx.Actor, id string, pipelineID *string, mutate Mutator[P]) (P, error) {
	ctx = ensureContext(ctx)
	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.machine.Terminal(order.CurrentStatus()) {
		return nil, apperrors.NewConflict(fmt.Sprintf("%s is %s and can no longer be edited", strings.ToLower(s.label()), order.CurrentStatus()))
	}

	status := order.CurrentStatus()
	if mutate != nil {
		if err := mutate(order); err != nil {
			return nil, err
		}
	}
	order.SetStatus(status)
	order.SetTenantID(actor.TenantID)

	if pipelineID != nil {
		ref, err := s.resolvePipeline(ctx, actor, pipelineID)
		if err != nil {
			return nil, err
		}
		order.SetPipelineRef(ref)
	}

	if _, err := s.syncer.Save(ctx, order, statussync.ExpectStatus(status)); err != nil {
		if mapped := writeError(err, s.label()); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("%s service: update: %w", s.kind, err)
	}
	return order, nil
}

// Delete removes an order and recomputes the pipeline it belonged to.
func (s *SubOrderService[T, P]) Delete(ctx context.Context, actor auditctx.Actor, id string) error {
	ctx = ensureContext(ctx)
	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	ref := order.PipelineRef()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(order).Error; err != nil {
			return fmt.Errorf("%s service: delete: %w", s.kind, err)
		}
		if ref == nil {
			return nil
		}
		if _, err := s.syncer.SyncPipeline(ctx, tx, *ref); err != nil && !errors.Is(err, statussync.ErrPipelineNotFound) {
			return err
		}
		return nil
	})
}

// Transition applies a workflow action and lets statussync update the pipeline.
func (s *SubOrderService[T, P]) Transition(ctx context.Context, actor auditctx.Actor, id string, action permissions.Action) (P, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !permissions.AuthorizeAction(actor.Role, s.Resource(), action) {
		return nil, apperrors.ErrActionForbidden
	}

	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := order.CurrentStatus()
	next, err := s.machine.Next(from, action)
	if err != nil {
		return nil, transitionError(err)
	}

	order.SetStatus(next)
	result, err := s.syncer.Save(ctx, order, statussync.ExpectStatus(from))
	if err != nil {
		recordAudit(s.audit, ctx, actor, AuditEntry{
			Action:   string(s.kind) + "." + string(action),
			Resource: order.GetID(),
			Result:   "failure",
			Metadata: map[string]any{"error": err.Error()},
		})
		if mapped := writeError(err, s.label()); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("%s service: transition: %w", s.kind, err)
	}

	logger.WithTenant(s.log, actor.TenantID).Info("order transitioned",
		zap.String("id", order.GetID()),
		zap.String("action", string(action)),
		zap.String("status", string(next)),
		zap.Bool("pipeline_changed", result.PipelineChanged),
	)
	recordAudit(s.audit, ctx, actor, AuditEntry{
		Action:   string(s.kind) + "." + string(action),
		Resource: order.GetID(),
		Result:   "success",
		Metadata: map[string]any{
			"from":             string(from),
			"to":               string(next),
			"pipeline_changed": result.PipelineChanged,
		},
	})
	return order, nil
}

// BulkUpdateStatus overwrites the status of many orders without recomputing
// pipelines. Ids outside the actor's tenant are ignored.
func (s *SubOrderService[T, P]) BulkUpdateStatus(ctx context.Context, actor auditctx.Actor, ids []string, status models.Status) (int64, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return 0, err
	}
	if !actor.IsAdmin() {
		return 0, apperrors.ErrForbidden
	}
	if !s.knowsStatus(status) {
		return 0, apperrors.NewValidation(map[string]string{"status": fmt.Sprintf("%s is not a %s status", status, strings.ToLower(s.label()))})
	}

	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	var owned []string
	if err := tenantDB(s.db, ctx, actor).Model(new(T)).Where("id IN ?", ids).Pluck("id", &owned).Error; err != nil {
		return 0, fmt.Errorf("%s service: resolve ids: %w", s.kind, err)
	}

	rows, err := s.syncer.BulkUpdateStatus(ctx, s.kind, owned, status)
	if err != nil {
		return 0, err
	}
	recordAudit(s.audit, ctx, actor, AuditEntry{
		Action:   string(s.kind) + ".bulk_status",
		Resource: string(s.kind),
		Result:   "success",
		Metadata: map[string]any{"status": string(status), "rows": rows},
	})
	return rows, nil
}

func (s *SubOrderService[T, P]) resolvePipeline(ctx context.Context, actor auditctx.Actor, pipelineID *string) (*string, error) {
	ref := trimmedPtr(pipelineID)
	if ref == nil {
		return nil, nil
	}
	var pipeline models.Pipeline
	if err := tenantDB(s.db, ctx, actor).Select("id", "status").First(&pipeline, "id = ?", *ref).Error; err != nil {
		return nil, notFound(err, "Pipeline")
	}
	if pipeline.Status == models.StatusCancelled {
		return nil, apperrors.NewConflict("cannot attach orders to a cancelled pipeline")
	}
	return ref, nil
}

func (s *SubOrderService[T, P]) knowsStatus(status models.Status) bool {
	for _, known := range s.machine.Statuses() {
		if known == status {
			return true
		}
	}
	return false
}

func (s *SubOrderService[T, P]) label() string {
	switch s.kind {
	case models.KindPurchaseOrder:
		return "Purchase order"
	case models.KindProductionOrder:
		return "Production order"
	case models.KindOutboundOrder:
		return "Outbound order"
	default:
		return "Order"
	}
}
