package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tradeflow/internal/handlers/testutil"
	"github.com/charlesng35/tradeflow/internal/models"
)

type orderPayload struct {
	ID         string  `json:"id"`
	Number     string  `json:"number"`
	Status     string  `json:"status"`
	PipelineID *string `json:"pipeline_id"`
}

func decodeOrder(t *testing.T, env *testutil.Env, method, path string, body any, token string, wantStatus int) orderPayload {
	t.Helper()
	w := env.Request(method, path, body, token)
	require.Equal(t, wantStatus, w.Code, w.Body.String())
	var out orderPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &out)
	return out
}

func pipelineStatus(t *testing.T, env *testutil.Env, id, token string) string {
	t.Helper()
	return decodeOrder(t, env, http.MethodGet, "/api/pipelines/"+id, nil, token, http.StatusOK).Status
}

func TestSalesOrderHandler_LifecycleOpensPipeline(t *testing.T) {
	env := testutil.NewEnv(t)
	sale := env.UserToken("sam", models.RoleSale)

	order := decodeOrder(t, env, http.MethodPost, "/api/sales-orders",
		map[string]any{"customer": "Globex", "amount": "1200.50"}, sale, http.StatusCreated)
	require.Equal(t, "DRAFT", order.Status)
	require.NotEmpty(t, order.Number)

	updated := decodeOrder(t, env, http.MethodPatch, "/api/sales-orders/"+order.ID,
		map[string]any{"notes": "rush"}, sale, http.StatusOK)
	require.Equal(t, "DRAFT", updated.Status)

	confirmed := decodeOrder(t, env, http.MethodPost, "/api/sales-orders/"+order.ID+"/transitions/confirm", nil, sale, http.StatusOK)
	require.Equal(t, "CONFIRMED", confirmed.Status)

	w := env.Request(http.MethodGet, "/api/pipelines", nil, sale)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	require.Equal(t, 1, resp.Meta.Total)

	w = env.Request(http.MethodGet, "/api/sales-orders?status=confirmed", nil, sale)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, testutil.DecodeResponse(t, w).Meta.Total)
}

func TestSalesOrderHandler_Validation(t *testing.T) {
	env := testutil.NewEnv(t)
	sale := env.UserToken("sam", models.RoleSale)

	w := env.Request(http.MethodPost, "/api/sales-orders", map[string]any{"amount": "10"}, sale)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, testutil.DecodeResponse(t, w).Error.Fields, "customer")

	w = env.Request(http.MethodPost, "/api/sales-orders", map[string]any{"customer": "Globex", "amount": "-1"}, sale)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.Request(http.MethodGet, "/api/sales-orders?from=yesterday", nil, sale)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodGet, "/api/sales-orders/does-not-exist", nil, sale)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSalesOrderHandler_PermissionGates(t *testing.T) {
	env := testutil.NewEnv(t)
	sale := env.UserToken("sam", models.RoleSale)
	warehouse := env.UserToken("wendy", models.RoleWarehouse)
	admin := env.AdminToken()

	order := decodeOrder(t, env, http.MethodPost, "/api/sales-orders",
		map[string]any{"customer": "Initech", "amount": 50}, sale, http.StatusCreated)

	w := env.Request(http.MethodPost, "/api/sales-orders", map[string]any{"customer": "Nope", "amount": 1}, warehouse)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodPost, "/api/sales-orders/"+order.ID+"/transitions/confirm", nil, warehouse)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "FORBIDDEN", testutil.DecodeResponse(t, w).Error.Code)
	require.Contains(t, testutil.DecodeResponse(t, w).Error.Message, "perform this action")

	w = env.Request(http.MethodPost, "/api/sales-orders/"+order.ID+"/transitions/teleport", nil, sale)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodPost, "/api/sales-orders/"+order.ID+"/transitions/teleport", nil, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)

	decodeOrder(t, env, http.MethodPost, "/api/sales-orders/"+order.ID+"/transitions/cancel", nil, sale, http.StatusOK)
	w = env.Request(http.MethodPost, "/api/sales-orders/"+order.ID+"/transitions/confirm", nil, sale)
	require.Equal(t, http.StatusConflict, w.Code)

	// Reads are open to every role of the tenant.
	w = env.Request(http.MethodGet, "/api/sales-orders/"+order.ID, nil, warehouse)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSubOrderHandlers_DrivePipelineStatus(t *testing.T) {
	env := testutil.NewEnv(t)
	sale := env.UserToken("sam", models.RoleSale)
	purchase := env.UserToken("pat", models.RolePurchase)
	production := env.UserToken("pia", models.RoleProduction)
	warehouse := env.UserToken("wendy", models.RoleWarehouse)

	pipeline := decodeOrder(t, env, http.MethodPost, "/api/pipelines", map[string]any{"title": "Widgets"}, sale, http.StatusCreated)
	require.Equal(t, "PENDING", pipeline.Status)
	base := "/api/pipelines/" + pipeline.ID

	po := decodeOrder(t, env, http.MethodPost, base+"/purchase-orders",
		map[string]any{"supplier": "Steel Co", "amount": "300"}, purchase, http.StatusCreated)
	require.NotNil(t, po.PipelineID)
	require.Equal(t, pipeline.ID, *po.PipelineID)
	require.Equal(t, "PENDING", po.Status)

	decodeOrder(t, env, http.MethodPost, "/api/purchase-orders/"+po.ID+"/transitions/approve", nil, purchase, http.StatusOK)
	require.Equal(t, "PURCHASING", pipelineStatus(t, env, pipeline.ID, sale))

	mo := decodeOrder(t, env, http.MethodPost, base+"/production-orders",
		map[string]any{"product": "Widget", "quantity": 10}, production, http.StatusCreated)
	decodeOrder(t, env, http.MethodPost, "/api/production-orders/"+mo.ID+"/transitions/issue", nil, production, http.StatusOK)
	require.Equal(t, "PRODUCING", pipelineStatus(t, env, pipeline.ID, sale))

	ob := decodeOrder(t, env, http.MethodPost, "/api/outbound-orders",
		map[string]any{"pipeline_id": pipeline.ID, "carrier": "DHL"}, warehouse, http.StatusCreated)
	for _, action := range []string{"pick", "ship"} {
		decodeOrder(t, env, http.MethodPost, "/api/outbound-orders/"+ob.ID+"/transitions/"+action, nil, warehouse, http.StatusOK)
	}
	require.Equal(t, "SHIPPING", pipelineStatus(t, env, pipeline.ID, sale))
	decodeOrder(t, env, http.MethodPost, "/api/outbound-orders/"+ob.ID+"/transitions/deliver", nil, warehouse, http.StatusOK)
	require.Equal(t, "COMPLETED", pipelineStatus(t, env, pipeline.ID, sale))

	w := env.Request(http.MethodGet, base+"/outbound-orders", nil, sale)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, testutil.DecodeResponse(t, w).Meta.Total)

	// Purchase staff may not act on production orders.
	w = env.Request(http.MethodPost, "/api/production-orders/"+mo.ID+"/transitions/start_production", nil, purchase)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubOrderHandler_CreateValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	production := env.UserToken("pia", models.RoleProduction)

	w := env.Request(http.MethodPost, "/api/production-orders", map[string]any{"product": "Widget"}, production)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, testutil.DecodeResponse(t, w).Error.Fields, "quantity")

	w = env.Request(http.MethodPost, "/api/production-orders", map[string]any{"product": "Widget", "quantity": 0}, production)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.Request(http.MethodPost, "/api/production-orders", map[string]any{
		"product": "Widget", "quantity": 1,
		"planned_start": "2024-05-10T00:00:00Z", "planned_end": "2024-05-01T00:00:00Z",
	}, production)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, testutil.DecodeResponse(t, w).Error.Fields, "planned_end")
}

func TestSubOrderHandler_BulkStatusIsAdminOnlyAndSkipsSync(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.AdminToken()
	purchase := env.UserToken("pat", models.RolePurchase)

	pipeline := decodeOrder(t, env, http.MethodPost, "/api/pipelines", map[string]any{"title": "Bulk"}, admin, http.StatusCreated)

	ids := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		po := decodeOrder(t, env, http.MethodPost, "/api/purchase-orders", map[string]any{
			"supplier":    fmt.Sprintf("Supplier %d", i),
			"pipeline_id": pipeline.ID,
		}, purchase, http.StatusCreated)
		ids = append(ids, po.ID)
	}

	w := env.Request(http.MethodPost, "/api/purchase-orders/bulk-status", map[string]any{"ids": ids, "status": "ordered"}, purchase)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodPost, "/api/purchase-orders/bulk-status", map[string]any{"ids": ids, "status": "shipped"}, admin)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.Request(http.MethodPost, "/api/purchase-orders/bulk-status", map[string]any{"ids": ids, "status": "ordered"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		Updated int64  `json:"updated"`
		Status  string `json:"status"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &result)
	require.EqualValues(t, 2, result.Updated)
	require.Equal(t, "ORDERED", result.Status)

	require.Equal(t, "PENDING", pipelineStatus(t, env, pipeline.ID, admin))

	w = env.Request(http.MethodPost, "/api/pipelines/"+pipeline.ID+"/resync", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resync struct {
		Changed  bool         `json:"changed"`
		Pipeline orderPayload `json:"pipeline"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &resync)
	require.True(t, resync.Changed)
	require.Equal(t, "PURCHASING", pipelineStatus(t, env, pipeline.ID, admin))
}

func TestPipelineHandler_DeleteUnlinksSubOrders(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.AdminToken()

	pipeline := decodeOrder(t, env, http.MethodPost, "/api/pipelines", map[string]any{}, admin, http.StatusCreated)
	po := decodeOrder(t, env, http.MethodPost, "/api/pipelines/"+pipeline.ID+"/purchase-orders",
		map[string]any{"supplier": "Steel Co"}, admin, http.StatusCreated)

	w := env.Request(http.MethodDelete, "/api/pipelines/"+pipeline.ID, nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	refreshed := decodeOrder(t, env, http.MethodGet, "/api/purchase-orders/"+po.ID, nil, admin, http.StatusOK)
	require.Nil(t, refreshed.PipelineID)

	w = env.Request(http.MethodGet, "/api/pipelines/"+pipeline.ID, nil, admin)
	require.Equal(t, http.StatusNotFound, w.Code)
}
