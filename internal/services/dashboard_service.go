package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/permissions"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
)

const maxCalendarRange = 366 * 24 * time.Hour

// StatusCount is the number of records of a kind in one status.
type StatusCount struct {
	Status models.Status `json:"status"`
	Count  int64         `json:"count"`
}

// Overview summarises the tenant's orders and the payments visible to the actor.
type Overview struct {
	Counts        map[models.OrderKind][]StatusCount        `json:"counts"`
	SalesTotal    decimal.Decimal                           `json:"sales_total"`
	PurchaseTotal decimal.Decimal                           `json:"purchase_total"`
	Payments      map[models.PaymentCategory]decimal.Decimal `json:"payments"`
}

// CalendarEvent is a dated milestone of an order.
type CalendarEvent struct {
	Kind   models.OrderKind `json:"kind"`
	ID     string           `json:"id"`
	Number string           `json:"number"`
	Title  string           `json:"title"`
	Date   time.Time        `json:"date"`
	Status models.Status    `json:"status"`
}

// DashboardService aggregates order data for the dashboard views.
type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(db *gorm.DB) (*DashboardService, error) {
	if db == nil {
		return nil, errors.New("dashboard service: db is required")
	}
	return &DashboardService{db: db, now: time.Now}, nil
}

var overviewModels = []struct {
	kind  models.OrderKind
	model any
}{
	{models.KindSalesOrder, &models.SalesOrder{}},
	{models.KindPipeline, &models.Pipeline{}},
	{models.KindPurchaseOrder, &models.PurchaseOrder{}},
	{models.KindProductionOrder, &models.ProductionOrder{}},
	{models.KindOutboundOrder, &models.OutboundOrder{}},
}

// Overview returns status counts per order kind and money totals.
func (s *DashboardService) Overview(ctx context.Context, actor auditctx.Actor) (*Overview, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	out := &Overview{
		Counts:   make(map[models.OrderKind][]StatusCount, len(overviewModels)),
		Payments: map[models.PaymentCategory]decimal.Decimal{},
	}

	for _, entry := range overviewModels {
		var counts []StatusCount
		err := tenantDB(s.db, ctx, actor).Model(entry.model).
			Select("status, COUNT(*) AS count").
			Group("status").
			Order("status").
			Scan(&counts).Error
		if err != nil {
			return nil, fmt.Errorf("dashboard service: count %s: %w", entry.kind, err)
		}
		if counts == nil {
			counts = []StatusCount{}
		}
		out.Counts[entry.kind] = counts
	}

	var err error
	if out.SalesTotal, err = s.sum(ctx, actor, &models.SalesOrder{}, "status <> ?", models.StatusCancelled); err != nil {
		return nil, err
	}
	if out.PurchaseTotal, err = s.sum(ctx, actor, &models.PurchaseOrder{}, "status <> ?", models.StatusCancelled); err != nil {
		return nil, err
	}
	for _, category := range permissions.AllowedPaymentCategories(actor.Role) {
		total, err := s.sum(ctx, actor, &models.Payment{}, "category = ? AND status <> ?", category, models.StatusVoid)
		if err != nil {
			return nil, err
		}
		out.Payments[category] = total
	}
	return out, nil
}

func (s *DashboardService) sum(ctx context.Context, actor auditctx.Actor, model any, query string, args ...any) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tenantDB(s.db, ctx, actor).Model(model).
		Where(query, args...).
		Select("SUM(amount)").
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dashboard service: sum: %w", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}

// Calendar lists order milestones between from and to, inclusive, ordered by date.
// A zero bound defaults to the current month.
func (s *DashboardService) Calendar(ctx context.Context, actor auditctx.Actor, from, to time.Time) ([]CalendarEvent, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = from.AddDate(0, 1, 0)
	}
	if to.Before(from) {
		return nil, apperrors.NewBadRequest("calendar range end must not precede its start")
	}
	if to.Sub(from) > maxCalendarRange {
		return nil, apperrors.NewBadRequest("calendar range must not exceed one year")
	}

	events := []CalendarEvent{}

	var sales []models.SalesOrder
	if err := tenantDB(s.db, ctx, actor).Where("due_date BETWEEN ? AND ?", from, to).Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: calendar: %w", err)
	}
	for _, order := range sales {
		events = append(events, CalendarEvent{Kind: models.KindSalesOrder, ID: order.ID, Number: order.Number, Title: order.Customer, Date: *order.DueDate, Status: order.Status})
	}

	var pipelines []models.Pipeline
	if err := tenantDB(s.db, ctx, actor).Where("due_date BETWEEN ? AND ?", from, to).Find(&pipelines).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: calendar: %w", err)
	}
	for _, pipeline := range pipelines {
		events = append(events, CalendarEvent{Kind: models.KindPipeline, ID: pipeline.ID, Number: pipeline.Number, Title: pipeline.Title, Date: *pipeline.DueDate, Status: pipeline.Status})
	}

	var purchases []models.PurchaseOrder
	if err := tenantDB(s.db, ctx, actor).Where("expected_at BETWEEN ? AND ?", from, to).Find(&purchases).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: calendar: %w", err)
	}
	for _, order := range purchases {
		events = append(events, CalendarEvent{Kind: models.KindPurchaseOrder, ID: order.ID, Number: order.Number, Title: order.Supplier, Date: *order.ExpectedAt, Status: order.Status})
	}

	var production []models.ProductionOrder
	if err := tenantDB(s.db, ctx, actor).Where("planned_start BETWEEN ? AND ?", from, to).Find(&production).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: calendar: %w", err)
	}
	for _, order := range production {
		events = append(events, CalendarEvent{Kind: models.KindProductionOrder, ID: order.ID, Number: order.Number, Title: order.Product, Date: *order.PlannedStart, Status: order.Status})
	}

	var outbound []models.OutboundOrder
	if err := tenantDB(s.db, ctx, actor).Where("ship_date BETWEEN ? AND ?", from, to).Find(&outbound).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: calendar: %w", err)
	}
	for _, order := range outbound {
		events = append(events, CalendarEvent{Kind: models.KindOutboundOrder, ID: order.ID, Number: order.Number, Title: order.Carrier, Date: *order.ShipDate, Status: order.Status})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].Number < events[j].Number
		}
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}
