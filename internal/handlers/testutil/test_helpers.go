package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/api"
	"github.com/charlesng35/tradeflow/internal/app"
	iauth "github.com/charlesng35/tradeflow/internal/auth"
	sharedtestutil "github.com/charlesng35/tradeflow/internal/database/testutil"
	"github.com/charlesng35/tradeflow/internal/middleware"
	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/pkg/crypto"
	"github.com/charlesng35/tradeflow/pkg/response"
)

// AdminUsername is the seeded administrator of every Env.
const AdminUsername = "admin"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T         *testing.T
	DB        *gorm.DB
	Router    *gin.Engine
	JWT       *iauth.JWTService
	Downloads *services.DownloadService
	TenantID  string
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
// The download queue is not started so tests drive export tasks explicitly.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         jwtSecret,
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Server: app.ServerConfig{
			AllowedOrigins: []string{"*"},
			LoginRateLimit: 100,
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{Secret: jwtSecret, Issuer: "test-suite", TTL: time.Hour},
		},
		Downloads: app.DownloadsConfig{
			Dir:       t.TempDir(),
			Workers:   1,
			QueueSize: 8,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)
	prefSvc, err := services.NewColumnPreferenceService(db, auditSvc)
	require.NoError(t, err)
	downloads, err := services.NewDownloadService(db, cfg.Downloads.ExporterConfig(), prefSvc, auditSvc)
	require.NoError(t, err)

	router, err := api.NewRouter(db, jwtSvc, cfg, downloads, middleware.NewMemoryRateStore())
	require.NoError(t, err)

	var admin models.User
	require.NoError(t, db.Where("username = ?", AdminUsername).First(&admin).Error)

	return &Env{
		T:         t,
		DB:        db,
		Router:    router,
		JWT:       jwtSvc,
		Downloads: downloads,
		TenantID:  admin.TenantID,
	}
}

// CreateUser inserts an active user of the seeded tenant with role and password.
func (e *Env) CreateUser(username string, role models.Role, password string) *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		TenantID: e.TenantID,
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		Role:     role,
		IsActive: true,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// TokenFor issues an access token for user without going through login.
func (e *Env) TokenFor(user *models.User) string {
	e.T.Helper()

	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, TenantID: user.TenantID})
	require.NoError(e.T, err)
	return token
}

// UserToken creates a user with role and returns an access token for it.
func (e *Env) UserToken(username string, role models.Role) string {
	e.T.Helper()
	return e.TokenFor(e.CreateUser(username, role, "Password123!"))
}

// AdminToken logs in as the seeded administrator.
func (e *Env) AdminToken() string {
	e.T.Helper()
	return e.Login(AdminUsername, sharedtestutil.AdminPassword).AccessToken
}

// UserPayload captures the subset of user fields returned from auth endpoints.
type UserPayload struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        UserPayload `json:"user"`
}

// Login authenticates with a password and returns the issued token.
func (e *Env) Login(username, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"identifier": username,
		"password":   password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.Equal(e.T, "Bearer", result.TokenType)
	require.Greater(e.T, result.ExpiresIn, 0)
	require.Equal(e.T, username, result.User.Username)

	return result
}

// RunDownload executes a queued export task synchronously.
func (e *Env) RunDownload(taskID string) {
	e.T.Helper()
	require.NoError(e.T, e.Downloads.Run(context.Background(), taskID))
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
