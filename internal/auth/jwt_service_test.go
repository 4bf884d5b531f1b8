package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestNewJWTServiceDefaultsTTL(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	require.Equal(t, DefaultAccessTokenTTL, svc.TTL())
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "super-secret",
		Issuer:         "tradeflow",
		AccessTokenTTL: time.Hour,
		Clock:          now,
	})
	require.NoError(t, err)
	require.Equal(t, time.Hour, svc.TTL())

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID:   "user-123",
		TenantID: "tenant-9",
		Audience: []string{"api"},
	})
	require.NoError(t, err)

	again, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-123", TenantID: "tenant-9", Audience: []string{"api"}})
	require.NoError(t, err)
	require.NotEqual(t, token, again)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	require.Equal(t, "user-123", claims.UserID)
	require.Equal(t, "user-123", claims.Subject)
	require.Equal(t, "tenant-9", claims.TenantID)
	require.Equal(t, "tradeflow", claims.Issuer)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, jwt.ClaimStrings{"api"}, claims.Audience)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
}

func TestGenerateAccessTokenRequiresIdentity(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = svc.GenerateAccessToken(AccessTokenInput{TenantID: "tenant"})
	require.ErrorIs(t, err, ErrMissingIdentity)
	_, err = svc.GenerateAccessToken(AccessTokenInput{UserID: "user"})
	require.ErrorIs(t, err, ErrMissingIdentity)
}

func TestValidateAccessTokenEmpty(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken("")
	require.ErrorIs(t, err, jwt.ErrTokenMalformed)
}

func TestValidateAccessTokenInvalidSignature(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewJWTService(JWTConfig{Secret: "issuer-secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)
	token, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: "user-123", TenantID: "t"})
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "other-secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestValidateAccessTokenWrongIssuer(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "someone-else"})
	require.NoError(t, err)
	token, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: "u", TenantID: "t"})
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "tradeflow"})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{Secret: "secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-123", TenantID: "t"})
	require.NoError(t, err)

	current = current.Add(time.Minute + clockSkew/2)
	_, err = svc.ValidateAccessToken(token)
	require.NoError(t, err)

	current = current.Add(clockSkew)
	_, err = svc.ValidateAccessToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}
