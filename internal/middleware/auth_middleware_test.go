package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/models"
)

type stubAuthenticator struct {
	users map[string]*models.User
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	user, ok := s.users[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return user, nil
}

func newUser(id string, role models.Role) *models.User {
	user := &models.User{Username: id, TenantID: "tenant-1", Role: role, IsActive: true}
	user.ID = id
	return user
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authn := stubAuthenticator{users: map[string]*models.User{"good-token": newUser("user-123", models.RoleSale)}}

	r := gin.New()
	r.GET("/secure", Auth(authn), func(c *gin.Context) {
		fromCtx, ok := auditctx.FromContext(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserIDKey),
			"role":    string(fromCtx.Role),
			"tenant":  fromCtx.TenantID,
		})
	})

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	// Unknown token -> 401
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer nope")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "bearer good-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "user-123", payload["user_id"])
	require.Equal(t, "SALE", payload["role"])
	require.Equal(t, "tenant-1", payload["tenant"])
}
