package statussync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/database/testutil"
	"github.com/charlesng35/tradeflow/internal/models"
)

type recorder struct {
	events []SyncEvent
}

func (r *recorder) observe(e SyncEvent) {
	r.events = append(r.events, e)
}

func setup(t *testing.T) (*gorm.DB, *Syncer, *recorder, *models.Pipeline) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	rec := &recorder{}
	syncer, err := New(db, WithObserver(rec.observe))
	require.NoError(t, err)

	pipeline := &models.Pipeline{
		TenantModel: models.TenantModel{TenantID: "tenant-1"},
		Number:      "PL-1",
		Status:      models.StatusPending,
	}
	require.NoError(t, db.Create(pipeline).Error)
	return db, syncer, rec, pipeline
}

func newPurchase(pipeline *models.Pipeline) *models.PurchaseOrder {
	return &models.PurchaseOrder{
		TenantModel: models.TenantModel{TenantID: pipeline.TenantID},
		PipelineID:  &pipeline.ID,
		Number:      "PO-1",
		Supplier:    "Steel Co",
		Status:      models.StatusPending,
	}
}

func pipelineStatus(t *testing.T, db *gorm.DB, id string) models.Status {
	t.Helper()
	var p models.Pipeline
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return p.Status
}

func TestNewRequiresDB(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestSaveCreateRecomputesOnce(t *testing.T) {
	db, syncer, rec, pipeline := setup(t)
	ctx := context.Background()

	order := newPurchase(pipeline)
	result, err := syncer.Save(ctx, order)
	require.NoError(t, err)
	require.True(t, result.Created)
	require.True(t, result.StatusChanged)
	require.True(t, result.Synced)
	require.False(t, result.PipelineChanged)
	require.NotEmpty(t, order.ID)
	require.Len(t, rec.events, 1)
	require.Equal(t, models.StatusPending, pipelineStatus(t, db, pipeline.ID))
}

func TestSaveWithoutStatusChangeDoesNotSync(t *testing.T) {
	_, syncer, rec, pipeline := setup(t)
	ctx := context.Background()

	order := newPurchase(pipeline)
	_, err := syncer.Save(ctx, order)
	require.NoError(t, err)
	rec.events = nil

	order.Supplier = "Other Steel Co"
	result, err := syncer.Save(ctx, order)
	require.NoError(t, err)
	require.False(t, result.Created)
	require.False(t, result.StatusChanged)
	require.False(t, result.Synced)
	require.Empty(t, rec.events)
}

func TestSaveStatusChangeUpdatesPipelineExactlyOnce(t *testing.T) {
	db, syncer, rec, pipeline := setup(t)
	ctx := context.Background()

	order := newPurchase(pipeline)
	_, err := syncer.Save(ctx, order)
	require.NoError(t, err)
	rec.events = nil

	order.Status = models.StatusApproved
	result, err := syncer.Save(ctx, order)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, result.PreviousStatus)
	require.True(t, result.Synced)
	require.True(t, result.PipelineChanged)

	require.Len(t, rec.events, 1)
	require.Equal(t, pipeline.ID, rec.events[0].PipelineID)
	require.Equal(t, models.KindPurchaseOrder, rec.events[0].Trigger)
	require.Equal(t, models.StatusPurchasing, rec.events[0].Derived)
	require.Equal(t, models.StatusPurchasing, pipelineStatus(t, db, pipeline.ID))
}

func TestSaveSkipSyncSuppressesOneCall(t *testing.T) {
	db, syncer, rec, pipeline := setup(t)
	ctx := context.Background()

	order := newPurchase(pipeline)
	_, err := syncer.Save(ctx, order, SkipSync())
	require.NoError(t, err)

	order.Status = models.StatusApproved
	result, err := syncer.Save(ctx, order, SkipSync())
	require.NoError(t, err)
	require.True(t, result.StatusChanged)
	require.False(t, result.Synced)
	require.Empty(t, rec.events)
	require.Equal(t, models.StatusPending, pipelineStatus(t, db, pipeline.ID))

	order.Status = models.StatusOrdered
	_, err = syncer.Save(ctx, order)
	require.NoError(t, err)
	require.Len(t, rec.events, 1)
	require.Equal(t, models.StatusPurchasing, pipelineStatus(t, db, pipeline.ID))
}

func TestBulkUpdateStatusNeverSyncs(t *testing.T) {
	db, syncer, rec, pipeline := setup(t)
	ctx := context.Background()

	order := newPurchase(pipeline)
	_, err := syncer.Save(ctx, order, SkipSync())
	require.NoError(t, err)

	rows, err := syncer.BulkUpdateStatus(ctx, models.KindPurchaseOrder, []string{order.ID}, models.StatusApproved)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)
	require.Empty(t, rec.events)
	require.Equal(t, models.StatusPending, pipelineStatus(t, db, pipeline.ID))

	var stored models.PurchaseOrder
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, models.StatusApproved, stored.Status)

	changed, err := syncer.SyncPipeline(ctx, nil, pipeline.ID)
	require.NoError(t, err)
	require.True(t, changed)
	require.Len(t, rec.events, 1)
	require.Equal(t, models.StatusPurchasing, pipelineStatus(t, db, pipeline.ID))
}

func TestSyncFiresAtMostOncePerSubOrderUpdate(t *testing.T) {
	_, syncer, rec, pipeline := setup(t)
	ctx := context.Background()

	outbound := &models.OutboundOrder{
		TenantModel: models.TenantModel{TenantID: pipeline.TenantID},
		PipelineID:  &pipeline.ID,
		Number:      "OB-1",
		Status:      models.StatusPending,
	}
	_, err := syncer.Save(ctx, outbound, SkipSync())
	require.NoError(t, err)

	for _, next := range []models.Status{models.StatusPicking, models.StatusShipped, models.StatusDelivered} {
		rec.events = nil
		outbound.Status = next
		_, err := syncer.Save(ctx, outbound)
		require.NoError(t, err)
		require.Len(t, rec.events, 1, "status %s", next)
	}
	require.Equal(t, models.StatusCompleted, rec.events[0].Derived)
}

func TestSaveWithoutPipelineDoesNotSync(t *testing.T) {
	_, syncer, rec, _ := setup(t)

	order := &models.ProductionOrder{
		TenantModel: models.TenantModel{TenantID: "tenant-1"},
		Number:      "MO-1",
		Product:     "Widget",
		Status:      models.StatusPending,
	}
	result, err := syncer.Save(context.Background(), order)
	require.NoError(t, err)
	require.True(t, result.StatusChanged)
	require.False(t, result.Synced)
	require.Empty(t, rec.events)
}

func TestSaveRollsBackWhenPipelineMissing(t *testing.T) {
	db, syncer, _, _ := setup(t)

	missing := "00000000-0000-0000-0000-000000000000"
	order := &models.PurchaseOrder{
		TenantModel: models.TenantModel{TenantID: "tenant-1"},
		PipelineID:  &missing,
		Number:      "PO-9",
		Supplier:    "Nobody",
		Status:      models.StatusPending,
	}
	_, err := syncer.Save(context.Background(), order)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.PurchaseOrder{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCancelledPipelineIsNotReopened(t *testing.T) {
	db, syncer, rec, pipeline := setup(t)
	ctx := context.Background()

	require.NoError(t, syncer.SetPipelineStatus(ctx, nil, pipeline.ID, models.StatusCancelled))

	order := newPurchase(pipeline)
	order.Status = models.StatusApproved
	_, err := syncer.Save(ctx, order)
	require.NoError(t, err)
	require.Len(t, rec.events, 1)
	require.False(t, rec.events[0].Changed)
	require.Equal(t, models.StatusCancelled, pipelineStatus(t, db, pipeline.ID))
}

func TestUnsupportedKinds(t *testing.T) {
	_, syncer, _, _ := setup(t)

	_, err := syncer.BulkUpdateStatus(context.Background(), models.KindSalesOrder, []string{"x"}, models.StatusCancelled)
	require.ErrorIs(t, err, ErrUnsupportedKind)

	require.ErrorIs(t, syncer.SetPipelineStatus(context.Background(), nil, "missing", models.StatusCancelled), ErrPipelineNotFound)
}

func TestSaveExpectStatusRejectsStaleWrite(t *testing.T) {
	db, syncer, rec, pipeline := setup(t)
	ctx := context.Background()

	order := newPurchase(pipeline)
	_, err := syncer.Save(ctx, order)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.PurchaseOrder{}).Where("id = ?", order.ID).UpdateColumn("status", models.StatusApproved).Error)
	_, err = syncer.SyncPipeline(ctx, nil, pipeline.ID)
	require.NoError(t, err)
	rec.events = nil

	stale := *order
	stale.Status = models.StatusCancelled
	stale.Supplier = "Stale Co"
	_, err = syncer.Save(ctx, &stale, ExpectStatus(models.StatusPending))
	require.ErrorIs(t, err, ErrStatusConflict)
	require.Empty(t, rec.events)

	var stored models.PurchaseOrder
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, models.StatusApproved, stored.Status)
	require.Equal(t, "Steel Co", stored.Supplier)
	require.Equal(t, models.StatusPurchasing, pipelineStatus(t, db, pipeline.ID))

	fresh := stored
	fresh.Status = models.StatusOrdered
	result, err := syncer.Save(ctx, &fresh, ExpectStatus(models.StatusApproved))
	require.NoError(t, err)
	require.True(t, result.StatusChanged)
	require.Len(t, rec.events, 1)
}

func TestSaveExpectStatusDoesNotRecreateDeletedRecord(t *testing.T) {
	db, syncer, _, pipeline := setup(t)
	ctx := context.Background()

	order := newPurchase(pipeline)
	_, err := syncer.Save(ctx, order)
	require.NoError(t, err)
	require.NoError(t, db.Delete(&models.PurchaseOrder{}, "id = ?", order.ID).Error)

	order.Status = models.StatusApproved
	_, err = syncer.Save(ctx, order, ExpectStatus(models.StatusPending))
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	require.NoError(t, db.Model(&models.PurchaseOrder{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSaveMovingPipelineRecomputesBoth(t *testing.T) {
	db, syncer, rec, first := setup(t)
	ctx := context.Background()

	second := &models.Pipeline{
		TenantModel: models.TenantModel{TenantID: first.TenantID},
		Number:      "PL-2",
		Status:      models.StatusPending,
	}
	require.NoError(t, db.Create(second).Error)

	order := newPurchase(first)
	order.Status = models.StatusApproved
	_, err := syncer.Save(ctx, order)
	require.NoError(t, err)
	require.Equal(t, models.StatusPurchasing, pipelineStatus(t, db, first.ID))
	rec.events = nil

	order.PipelineID = &second.ID
	result, err := syncer.Save(ctx, order)
	require.NoError(t, err)
	require.False(t, result.StatusChanged)
	require.True(t, result.RefChanged)
	require.True(t, result.Synced)
	require.True(t, result.PipelineChanged)
	require.Len(t, rec.events, 2)
	require.Equal(t, models.StatusPending, pipelineStatus(t, db, first.ID))
	require.Equal(t, models.StatusPurchasing, pipelineStatus(t, db, second.ID))

	rec.events = nil
	order.PipelineID = nil
	result, err = syncer.Save(ctx, order)
	require.NoError(t, err)
	require.True(t, result.RefChanged)
	require.False(t, result.Synced)
	require.Len(t, rec.events, 1)
	require.Equal(t, models.StatusPending, pipelineStatus(t, db, second.ID))
}
