package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/permissions"
)

func permissionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	authn := stubAuthenticator{users: map[string]*models.User{
		"admin":      newUser("u-admin", models.RoleAdmin),
		"sale":       newUser("u-sale", models.RoleSale),
		"production": newUser("u-production", models.RoleProduction),
	}}

	r := gin.New()
	secured := r.Group("/", Auth(authn))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	secured.POST("/sales-orders/:id/transitions/:action", RequireAction(permissions.ResourceSalesOrder), ok)
	secured.POST("/production-orders/:id/transitions/:action", RequireAction(permissions.ResourceProductionOrder), ok)
	secured.POST("/payments", RequireResource(permissions.ResourcePayment), ok)
	secured.GET("/audit", RequireAdmin(), ok)
	r.GET("/anonymous", RequireAdmin(), ok)
	return r
}

func TestRequireActionUsesRoleTables(t *testing.T) {
	r := permissionRouter()

	cases := []struct {
		token string
		path  string
		want  int
	}{
		{"sale", "/sales-orders/1/transitions/confirm", http.StatusOK},
		{"production", "/sales-orders/1/transitions/confirm", http.StatusForbidden},
		{"production", "/production-orders/1/transitions/issue", http.StatusOK},
		{"sale", "/production-orders/1/transitions/issue", http.StatusForbidden},
		{"admin", "/production-orders/1/transitions/anything", http.StatusOK},
		{"sale", "/sales-orders/1/transitions/teleport", http.StatusForbidden},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		r.ServeHTTP(w, req)
		require.Equal(t, tc.want, w.Code, "%s %s", tc.token, tc.path)
	}
}

func TestRequireResourceAndAdmin(t *testing.T) {
	r := permissionRouter()

	do := func(method, path, token string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, do(http.MethodPost, "/payments", "sale"))
	require.Equal(t, http.StatusForbidden, do(http.MethodPost, "/payments", "production"))
	require.Equal(t, http.StatusOK, do(http.MethodGet, "/audit", "admin"))
	require.Equal(t, http.StatusForbidden, do(http.MethodGet, "/audit", "sale"))
	require.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/anonymous", ""))
}
