package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/auth"
	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/permissions"
	"github.com/charlesng35/tradeflow/pkg/crypto"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
	"github.com/charlesng35/tradeflow/pkg/logger"
	"github.com/charlesng35/tradeflow/pkg/metrics"
)

// ErrAccountDisabled is returned for deactivated users.
var ErrAccountDisabled = apperrors.New("ACCOUNT_DISABLED", "Account is disabled", http.StatusForbidden)

// LoginInput carries the credentials and request metadata of a login attempt.
type LoginInput struct {
	Identifier string
	Password   string
	IPAddress  string
	UserAgent  string
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *models.User `json:"user"`
}

// UserProfile is the view of the current user returned by /users/me.
type UserProfile struct {
	User              *models.User               `json:"user"`
	Actions           []string                   `json:"actions"`
	PaymentCategories []models.PaymentCategory   `json:"payment_categories"`
	Resources         []permissions.ResourceType `json:"resources"`
}

// UserService authenticates users and resolves request identities.
type UserService struct {
	db    *gorm.DB
	jwt   *auth.JWTService
	audit *AuditService
	clock func() time.Time
	log   *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, jwt *auth.JWTService, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if jwt == nil {
		return nil, errors.New("user service: jwt service is required")
	}
	return &UserService{db: db, jwt: jwt, audit: audit, clock: time.Now, log: logger.WithModule("users")}, nil
}

// Login verifies the credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	ctx = ensureContext(ctx)
	identity := strings.TrimSpace(input.Identifier)
	if identity == "" || input.Password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", identity, identity).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: query user: %w", err)
	}

	actor := auditctx.FromUser(&user)
	actor.IPAddress = strings.TrimSpace(input.IPAddress)
	actor.UserAgent = strings.TrimSpace(input.UserAgent)

	if !crypto.VerifyPassword(user.Password, input.Password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		recordAudit(s.audit, ctx, actor, AuditEntry{Action: "auth.login", Resource: "user", Result: "failure"})
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrAccountDisabled
	}

	now := s.clock().UTC()
	updates := map[string]any{"last_login_at": now}
	if crypto.NeedsRehash(user.Password) {
		if hashed, err := crypto.HashPassword(input.Password); err == nil {
			updates["password"] = hashed
		}
	}
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumns(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update user: %w", err)
	}
	user.LastLoginAt = &now

	token, err := s.jwt.GenerateAccessToken(auth.AccessTokenInput{UserID: user.ID, TenantID: user.TenantID})
	if err != nil {
		return nil, fmt.Errorf("user service: issue token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	recordAudit(s.audit, ctx, actor, AuditEntry{Action: "auth.login", Resource: "user", Result: "success"})
	logger.WithTenant(s.log, user.TenantID).Info("user logged in", zap.String("user_id", user.ID))

	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwt.TTL().Seconds()),
		User:        &user,
	}, nil
}

// Authenticate validates an access token and loads the active user it names.
// The role always comes from the stored user record.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	user, err := s.loadActive(ctx, claims.UserID, claims.TenantID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Me returns the profile of the actor including the permissions derived from the role.
func (s *UserService) Me(ctx context.Context, actor auditctx.Actor) (*UserProfile, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Preload("Tenant").
		Where("id = ? AND tenant_id = ?", actor.UserID, actor.TenantID).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}

	profile := &UserProfile{
		User:              &user,
		Actions:           []string{},
		PaymentCategories: permissions.AllowedPaymentCategories(user.Role),
		Resources:         []permissions.ResourceType{},
	}
	for _, def := range permissions.AllowedActions(user.Role) {
		profile.Actions = append(profile.Actions, def.ID())
	}
	for _, resource := range permissions.AllResources() {
		if permissions.AuthorizeResource(user.Role, resource) {
			profile.Resources = append(profile.Resources, resource)
		}
	}
	if profile.PaymentCategories == nil {
		profile.PaymentCategories = []models.PaymentCategory{}
	}
	return profile, nil
}

func (s *UserService) loadActive(ctx context.Context, userID, tenantID string) (*models.User, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(tenantID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	var user models.User
	err := s.db.WithContext(ensureContext(ctx)).
		Where("id = ? AND tenant_id = ?", userID, tenantID).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	if !user.IsActive || !user.Role.Valid() {
		return nil, apperrors.ErrUnauthorized
	}
	return &user, nil
}
