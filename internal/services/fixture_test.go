package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/database/testutil"
	"github.com/charlesng35/tradeflow/internal/exports"
	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/statussync"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
)

type fixture struct {
	db       *gorm.DB
	tenantID string

	audit      *AuditService
	syncer     *statussync.Syncer
	sales      *SalesOrderService
	pipelines  *PipelineService
	purchase   *PurchaseOrderService
	production *ProductionOrderService
	outbound   *OutboundOrderService
	payments   *PaymentService
	prefs      *ColumnPreferenceService
	downloads  *DownloadService
	dashboard  *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	tenant := testutil.MustCreateTenant(t, db, "Acme")

	f := &fixture{db: db, tenantID: tenant.ID}

	var err error
	f.audit, err = NewAuditService(db)
	require.NoError(t, err)
	f.syncer, err = statussync.New(db)
	require.NoError(t, err)
	f.sales, err = NewSalesOrderService(db, f.syncer, f.audit)
	require.NoError(t, err)
	f.pipelines, err = NewPipelineService(db, f.syncer, f.audit)
	require.NoError(t, err)
	f.purchase, err = NewPurchaseOrderService(db, f.syncer, f.audit)
	require.NoError(t, err)
	f.production, err = NewProductionOrderService(db, f.syncer, f.audit)
	require.NoError(t, err)
	f.outbound, err = NewOutboundOrderService(db, f.syncer, f.audit)
	require.NoError(t, err)
	f.payments, err = NewPaymentService(db, f.audit)
	require.NoError(t, err)
	f.prefs, err = NewColumnPreferenceService(db, f.audit)
	require.NoError(t, err)
	f.downloads, err = NewDownloadService(db, exports.Config{Dir: t.TempDir(), Workers: 1, QueueSize: 4}, f.prefs, f.audit)
	require.NoError(t, err)
	f.dashboard, err = NewDashboardService(db)
	require.NoError(t, err)

	return f
}

// actor creates a user with role in the fixture tenant.
func (f *fixture) actor(t *testing.T, username string, role models.Role) auditctx.Actor {
	t.Helper()
	return auditctx.FromUser(testutil.MustCreateUser(t, f.db, f.tenantID, username, role))
}

func (f *fixture) pipelineStatus(t *testing.T, id string) models.Status {
	t.Helper()
	var pipeline models.Pipeline
	require.NoError(t, f.db.First(&pipeline, "id = ?", id).Error)
	return pipeline.Status
}

func ptr[T any](v T) *T {
	return &v
}

func requireStatusCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.StatusCode)
}
