package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/permissions"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
)

// PaymentInput carries writable payment fields. Nil pointers are left unchanged on update.
type PaymentInput struct {
	Category        *models.PaymentCategory
	Amount          *decimal.Decimal
	Currency        *string
	Reference       *string
	SalesOrderID    *string
	PurchaseOrderID *string
	PaidAt          *time.Time
	Status          *models.Status
}

// PaymentService manages payments restricted to the categories of the actor's role.
type PaymentService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(db *gorm.DB, audit *AuditService) (*PaymentService, error) {
	if db == nil {
		return nil, errors.New("payment service: db is required")
	}
	return &PaymentService{db: db, audit: audit}, nil
}

// List returns the payments whose category the actor may see.
func (s *PaymentService) List(ctx context.Context, actor auditctx.Actor, opts ListOptions) ([]models.Payment, int64, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	opts = opts.normalised()

	categories := permissions.AllowedPaymentCategories(actor.Role)
	if len(categories) == 0 {
		return []models.Payment{}, 0, nil
	}

	query := tenantDB(s.db, ctx, actor).Model(&models.Payment{}).Where("category IN ?", categories)
	if opts.Status != "" {
		if category, ok := models.ParsePaymentCategory(opts.Status); ok {
			query = query.Where("category = ?", category)
		} else {
			query = query.Where("status = ?", opts.Status)
		}
	}
	if opts.Search != "" {
		query = query.Where("LOWER(reference) LIKE ?", "%"+strings.ToLower(opts.Search)+"%")
	}

	query = applyCreatedRange(query, opts)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("payment service: count: %w", err)
	}

	var payments []models.Payment
	if err := query.Order("created_at DESC").
		Offset((opts.Page - 1) * opts.PerPage).
		Limit(opts.PerPage).
		Find(&payments).Error; err != nil {
		return nil, 0, fmt.Errorf("payment service: list: %w", err)
	}
	return payments, total, nil
}

// Get loads a payment. Payments of categories hidden from the role are reported as missing.
func (s *PaymentService) Get(ctx context.Context, actor auditctx.Actor, id string) (*models.Payment, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var payment models.Payment
	if err := tenantDB(s.db, ctx, actor).First(&payment, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return nil, notFound(err, "Payment")
	}
	if !permissions.AuthorizePayment(actor.Role, payment.Category) {
		return nil, apperrors.NewNotFound("Payment")
	}
	return &payment, nil
}

// Create records a payment in a category the actor may manage.
func (s *PaymentService) Create(ctx context.Context, actor auditctx.Actor, input PaymentInput) (*models.Payment, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	payment := &models.Payment{Status: models.StatusPending}
	payment.TenantID = actor.TenantID
	if err := s.apply(ctx, actor, payment, input); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, fmt.Errorf("payment service: create: %w", err)
	}
	recordAudit(s.audit, ctx, actor, AuditEntry{
		Action:   "payment.create",
		Resource: payment.ID,
		Result:   "success",
		Metadata: map[string]any{"category": string(payment.Category), "amount": payment.Amount.String()},
	})
	return payment, nil
}

// Update changes a payment. Moving it into a category the actor may not manage is forbidden.
func (s *PaymentService) Update(ctx context.Context, actor auditctx.Actor, id string, input PaymentInput) (*models.Payment, error) {
	payment, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.StatusVoid {
		return nil, apperrors.NewConflict("void payments cannot be edited")
	}
	if err := s.apply(ctx, actor, payment, input); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ensureContext(ctx)).Save(payment).Error; err != nil {
		return nil, fmt.Errorf("payment service: update: %w", err)
	}
	return payment, nil
}

// Delete removes a payment visible to the actor.
func (s *PaymentService) Delete(ctx context.Context, actor auditctx.Actor, id string) error {
	payment, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ensureContext(ctx)).Delete(payment).Error; err != nil {
		return fmt.Errorf("payment service: delete: %w", err)
	}
	recordAudit(s.audit, ctx, actor, AuditEntry{Action: "payment.delete", Resource: payment.ID, Result: "success"})
	return nil
}

func (s *PaymentService) apply(ctx context.Context, actor auditctx.Actor, payment *models.Payment, input PaymentInput) error {
	fields := map[string]string{}

	if input.Category != nil {
		category, ok := models.ParsePaymentCategory(string(*input.Category))
		if !ok {
			fields["category"] = "category is not supported"
		} else {
			payment.Category = category
		}
	}
	if input.Amount != nil {
		if input.Amount.IsNegative() {
			fields["amount"] = "amount must be zero or greater"
		}
		payment.Amount = *input.Amount
	}
	if input.Currency != nil {
		payment.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if input.Reference != nil {
		payment.Reference = strings.TrimSpace(*input.Reference)
	}
	if input.PaidAt != nil {
		paid := *input.PaidAt
		payment.PaidAt = &paid
	}
	if input.Status != nil {
		switch *input.Status {
		case models.StatusPending, models.StatusPaid, models.StatusVoid:
			payment.Status = *input.Status
		default:
			fields["status"] = "status must be one of PENDING PAID VOID"
		}
	}
	if input.SalesOrderID != nil {
		payment.SalesOrderID = trimmedPtr(input.SalesOrderID)
	}
	if input.PurchaseOrderID != nil {
		payment.PurchaseOrderID = trimmedPtr(input.PurchaseOrderID)
	}

	if payment.Category == "" {
		fields["category"] = "category is required"
	}
	if len(fields) > 0 {
		return apperrors.NewValidation(fields)
	}
	if !permissions.AuthorizePayment(actor.Role, payment.Category) {
		return apperrors.ErrForbidden.WithMessage("You do not have permission to manage this payment category.")
	}

	if payment.SalesOrderID != nil {
		if err := tenantDB(s.db, ctx, actor).Select("id").First(&models.SalesOrder{}, "id = ?", *payment.SalesOrderID).Error; err != nil {
			return notFound(err, "Sales order")
		}
	}
	if payment.PurchaseOrderID != nil {
		if err := tenantDB(s.db, ctx, actor).Select("id").First(&models.PurchaseOrder{}, "id = ?", *payment.PurchaseOrderID).Error; err != nil {
			return notFound(err, "Purchase order")
		}
	}
	return nil
}
