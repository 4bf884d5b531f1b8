package services

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/permissions"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
)

func TestSalesOrderConfirmOpensPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.actor(t, "sam", models.RoleSale)

	order, err := f.sales.Create(ctx, sale, SalesOrderInput{
		Customer: ptr("Globex"),
		Amount:   ptr(decimal.RequireFromString("1250.50")),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, order.Status)
	require.Regexp(t, `^SO-\d{8}-[0-9A-F]{6}$`, order.Number)

	confirmed, err := f.sales.Transition(ctx, sale, order.ID, permissions.ActionConfirm)
	require.NoError(t, err)
	require.Equal(t, models.StatusConfirmed, confirmed.Status)

	var pipeline models.Pipeline
	require.NoError(t, f.db.First(&pipeline, "sales_order_id = ?", order.ID).Error)
	require.Equal(t, models.StatusPending, pipeline.Status)
	require.Equal(t, "Globex", pipeline.Title)
	require.Equal(t, f.tenantID, pipeline.TenantID)

	_, err = f.sales.Transition(ctx, sale, order.ID, permissions.ActionCancel)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, f.pipelineStatus(t, pipeline.ID))

	var logs []models.AuditLog
	require.NoError(t, f.db.Where("action LIKE ?", "sales_order.%").Find(&logs).Error)
	require.Len(t, logs, 2)
}

func TestSalesOrderTransitionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.actor(t, "sam", models.RoleSale)
	production := f.actor(t, "pat", models.RoleProduction)
	admin := f.actor(t, "root", models.RoleAdmin)

	order, err := f.sales.Create(ctx, sale, SalesOrderInput{Customer: ptr("Initech"), Amount: ptr(decimal.NewFromInt(10))})
	require.NoError(t, err)

	_, err = f.sales.Transition(ctx, production, order.ID, permissions.ActionConfirm)
	require.ErrorIs(t, err, apperrors.ErrActionForbidden)

	_, err = f.sales.Transition(ctx, admin, order.ID, permissions.Action("teleport"))
	requireStatusCode(t, err, http.StatusBadRequest)

	_, err = f.sales.Transition(ctx, sale, order.ID, permissions.ActionConfirm)
	require.NoError(t, err)
	_, err = f.sales.Transition(ctx, sale, order.ID, permissions.ActionConfirm)
	requireStatusCode(t, err, http.StatusConflict)
}

func TestSalesOrderTenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.actor(t, "sam", models.RoleSale)

	order, err := f.sales.Create(ctx, sale, SalesOrderInput{Customer: ptr("Umbrella"), Amount: ptr(decimal.NewFromInt(5))})
	require.NoError(t, err)

	other := sale
	other.TenantID = "another-tenant"
	_, err = f.sales.Get(ctx, other, order.ID)
	requireStatusCode(t, err, http.StatusNotFound)

	orders, total, err := f.sales.List(ctx, other, ListOptions{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, orders)
}

func TestSubOrderTransitionsDrivePipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	purchaser := f.actor(t, "pam", models.RolePurchase)
	maker := f.actor(t, "max", models.RoleProduction)
	shipper := f.actor(t, "walt", models.RoleWarehouse)
	sale := f.actor(t, "sam", models.RoleSale)

	pipeline, err := f.pipelines.Create(ctx, sale, PipelineInput{Title: ptr("Spring batch")})
	require.NoError(t, err)

	po, err := f.purchase.Create(ctx, purchaser, &pipeline.ID, func(o *models.PurchaseOrder) error {
		o.Supplier = "Steel Co"
		o.Amount = decimal.NewFromInt(300)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, po.Status)
	require.Equal(t, models.StatusPending, f.pipelineStatus(t, pipeline.ID))

	_, err = f.purchase.Transition(ctx, purchaser, po.ID, permissions.ActionApprove)
	require.NoError(t, err)
	require.Equal(t, models.StatusPurchasing, f.pipelineStatus(t, pipeline.ID))

	mo, err := f.production.Create(ctx, maker, &pipeline.ID, func(o *models.ProductionOrder) error {
		o.Product = "Widget"
		o.Quantity = 10
		return nil
	})
	require.NoError(t, err)
	_, err = f.production.Transition(ctx, maker, mo.ID, permissions.ActionIssue)
	require.NoError(t, err)
	require.Equal(t, models.StatusProducing, f.pipelineStatus(t, pipeline.ID))

	ob, err := f.outbound.Create(ctx, shipper, &pipeline.ID, func(o *models.OutboundOrder) error {
		o.Carrier = "DHL"
		return nil
	})
	require.NoError(t, err)
	for _, action := range []permissions.Action{permissions.ActionPick, permissions.ActionShip} {
		_, err = f.outbound.Transition(ctx, shipper, ob.ID, action)
		require.NoError(t, err)
	}
	require.Equal(t, models.StatusShipping, f.pipelineStatus(t, pipeline.ID))

	_, err = f.outbound.Transition(ctx, shipper, ob.ID, permissions.ActionDeliver)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, f.pipelineStatus(t, pipeline.ID))

	_, err = f.outbound.Transition(ctx, maker, ob.ID, permissions.ActionDeliver)
	require.ErrorIs(t, err, apperrors.ErrActionForbidden)
}

func TestSubOrderUpdateKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	purchaser := f.actor(t, "pam", models.RolePurchase)

	po, err := f.purchase.Create(ctx, purchaser, nil, func(o *models.PurchaseOrder) error {
		o.Supplier = "Steel Co"
		return nil
	})
	require.NoError(t, err)

	updated, err := f.purchase.Update(ctx, purchaser, po.ID, nil, func(o *models.PurchaseOrder) error {
		o.Supplier = "Iron Co"
		o.Status = models.StatusReceived
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "Iron Co", updated.Supplier)
	require.Equal(t, models.StatusPending, updated.Status)
}

func TestBulkUpdateStatusSkipsPipelineSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)
	shipper := f.actor(t, "walt", models.RoleWarehouse)

	pipeline, err := f.pipelines.Create(ctx, admin, PipelineInput{})
	require.NoError(t, err)

	ob, err := f.outbound.Create(ctx, shipper, &pipeline.ID, nil)
	require.NoError(t, err)

	_, err = f.outbound.BulkUpdateStatus(ctx, shipper, []string{ob.ID}, models.StatusDelivered)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.outbound.BulkUpdateStatus(ctx, admin, []string{ob.ID}, models.StatusOrdered)
	requireStatusCode(t, err, http.StatusUnprocessableEntity)

	rows, err := f.outbound.BulkUpdateStatus(ctx, admin, []string{ob.ID, ob.ID, "missing"}, models.StatusDelivered)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)
	require.Equal(t, models.StatusPending, f.pipelineStatus(t, pipeline.ID))

	resynced, changed, err := f.pipelines.Resync(ctx, admin, pipeline.ID)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, models.StatusCompleted, resynced.Status)
}

func TestPipelineCreateRejectsSecondLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.actor(t, "sam", models.RoleSale)

	order, err := f.sales.Create(ctx, sale, SalesOrderInput{Customer: ptr("Hooli"), Amount: ptr(decimal.NewFromInt(1))})
	require.NoError(t, err)
	_, err = f.sales.Transition(ctx, sale, order.ID, permissions.ActionConfirm)
	require.NoError(t, err)

	_, err = f.pipelines.Create(ctx, sale, PipelineInput{SalesOrderID: &order.ID})
	requireStatusCode(t, err, http.StatusConflict)
}

func TestPipelineDeleteUnlinksSubOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)

	pipeline, err := f.pipelines.Create(ctx, admin, PipelineInput{})
	require.NoError(t, err)
	po, err := f.purchase.Create(ctx, admin, &pipeline.ID, nil)
	require.NoError(t, err)

	require.NoError(t, f.pipelines.Delete(ctx, admin, pipeline.ID))

	reloaded, err := f.purchase.Get(ctx, admin, po.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.PipelineID)
}

// setStatusAfterFirstRead flips the status of id right after the first query
// on table, emulating a request that lands between read and write.
func setStatusAfterFirstRead(t *testing.T, db *gorm.DB, table string, model any, id string, status models.Status) {
	t.Helper()
	var once sync.Once
	name := "test:set_status_" + table
	require.NoError(t, db.Callback().Query().After("gorm:query").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		once.Do(func() {
			require.NoError(t, db.Session(&gorm.Session{NewDB: true}).Model(model).Where("id = ?", id).UpdateColumn("status", status).Error)
		})
	}))
	t.Cleanup(func() { _ = db.Callback().Query().Remove(name) })
}

func TestSubOrderUpdateDoesNotRevertConcurrentTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	purchaser := f.actor(t, "pam", models.RolePurchase)

	pipeline, err := f.pipelines.Create(ctx, purchaser, PipelineInput{})
	require.NoError(t, err)
	po, err := f.purchase.Create(ctx, purchaser, &pipeline.ID, func(o *models.PurchaseOrder) error {
		o.Supplier = "Steel Co"
		return nil
	})
	require.NoError(t, err)

	_, err = f.purchase.Update(ctx, purchaser, po.ID, nil, func(o *models.PurchaseOrder) error {
		_, err := f.purchase.Transition(ctx, purchaser, po.ID, permissions.ActionApprove)
		require.NoError(t, err)
		o.Supplier = "Iron Co"
		return nil
	})
	requireStatusCode(t, err, http.StatusConflict)
	require.ErrorIs(t, err, ErrConcurrentUpdate)

	reloaded, err := f.purchase.Get(ctx, purchaser, po.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, reloaded.Status)
	require.Equal(t, "Steel Co", reloaded.Supplier)
	require.Equal(t, models.StatusPurchasing, f.pipelineStatus(t, pipeline.ID))
}

func TestSubOrderTransitionDoesNotOverwriteConcurrentCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	purchaser := f.actor(t, "pam", models.RolePurchase)

	pipeline, err := f.pipelines.Create(ctx, purchaser, PipelineInput{})
	require.NoError(t, err)
	po, err := f.purchase.Create(ctx, purchaser, &pipeline.ID, nil)
	require.NoError(t, err)

	setStatusAfterFirstRead(t, f.db, "purchase_orders", &models.PurchaseOrder{}, po.ID, models.StatusCancelled)

	_, err = f.purchase.Transition(ctx, purchaser, po.ID, permissions.ActionApprove)
	requireStatusCode(t, err, http.StatusConflict)

	reloaded, err := f.purchase.Get(ctx, purchaser, po.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, reloaded.Status)
	require.Equal(t, models.StatusPending, f.pipelineStatus(t, pipeline.ID))
}

func TestSubOrderUpdateMovesBetweenPipelines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	purchaser := f.actor(t, "pam", models.RolePurchase)

	first, err := f.pipelines.Create(ctx, purchaser, PipelineInput{Title: ptr("First")})
	require.NoError(t, err)
	second, err := f.pipelines.Create(ctx, purchaser, PipelineInput{Title: ptr("Second")})
	require.NoError(t, err)

	po, err := f.purchase.Create(ctx, purchaser, &first.ID, nil)
	require.NoError(t, err)
	_, err = f.purchase.Transition(ctx, purchaser, po.ID, permissions.ActionApprove)
	require.NoError(t, err)
	require.Equal(t, models.StatusPurchasing, f.pipelineStatus(t, first.ID))

	moved, err := f.purchase.Update(ctx, purchaser, po.ID, &second.ID, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, moved.Status)
	require.Equal(t, models.StatusPending, f.pipelineStatus(t, first.ID))
	require.Equal(t, models.StatusPurchasing, f.pipelineStatus(t, second.ID))
}

func TestSalesOrderUpdateConflictsWithConcurrentCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.actor(t, "sam", models.RoleSale)

	order, err := f.sales.Create(ctx, sale, SalesOrderInput{Customer: ptr("Globex"), Amount: ptr(decimal.NewFromInt(10))})
	require.NoError(t, err)

	setStatusAfterFirstRead(t, f.db, "sales_orders", &models.SalesOrder{}, order.ID, models.StatusCancelled)

	_, err = f.sales.Update(ctx, sale, order.ID, SalesOrderInput{Customer: ptr("Initech")})
	require.ErrorIs(t, err, ErrConcurrentUpdate)

	reloaded, err := f.sales.Get(ctx, sale, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, reloaded.Status)
	require.Equal(t, "Globex", reloaded.Customer)
}

func TestSalesOrderTransitionConflictsWithConcurrentCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.actor(t, "sam", models.RoleSale)

	order, err := f.sales.Create(ctx, sale, SalesOrderInput{Customer: ptr("Globex"), Amount: ptr(decimal.NewFromInt(10))})
	require.NoError(t, err)

	setStatusAfterFirstRead(t, f.db, "sales_orders", &models.SalesOrder{}, order.ID, models.StatusCancelled)

	_, err = f.sales.Transition(ctx, sale, order.ID, permissions.ActionConfirm)
	requireStatusCode(t, err, http.StatusConflict)

	var pipelines int64
	require.NoError(t, f.db.Model(&models.Pipeline{}).Where("sales_order_id = ?", order.ID).Count(&pipelines).Error)
	require.Zero(t, pipelines)
}

func TestSalesOrderDeleteUnlinksPipelineAndPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.actor(t, "sam", models.RoleSale)

	order, err := f.sales.Create(ctx, sale, SalesOrderInput{Customer: ptr("Globex"), Amount: ptr(decimal.NewFromInt(10))})
	require.NoError(t, err)

	_, err = f.sales.Transition(ctx, sale, order.ID, permissions.ActionConfirm)
	require.NoError(t, err)
	require.Error(t, f.sales.Delete(ctx, sale, order.ID))

	_, err = f.sales.Transition(ctx, sale, order.ID, permissions.ActionCancel)
	require.NoError(t, err)

	payment := &models.Payment{
		TenantModel:  models.TenantModel{TenantID: f.tenantID},
		Category:     models.PaymentReceivable,
		Amount:       decimal.NewFromInt(10),
		Currency:     "USD",
		SalesOrderID: &order.ID,
		Status:       models.StatusPending,
	}
	require.NoError(t, f.db.Create(payment).Error)

	require.NoError(t, f.sales.Delete(ctx, sale, order.ID))

	var pipeline models.Pipeline
	require.NoError(t, f.db.First(&pipeline, "title = ?", "Globex").Error)
	require.Nil(t, pipeline.SalesOrderID)
	require.Equal(t, models.StatusCancelled, pipeline.Status)

	var stored models.Payment
	require.NoError(t, f.db.First(&stored, "id = ?", payment.ID).Error)
	require.Nil(t, stored.SalesOrderID)

	_, err = f.sales.Get(ctx, sale, order.ID)
	requireStatusCode(t, err, http.StatusNotFound)
}
