package auth

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/coursework/internal/config"
	"github.com/phrazzld/coursework/internal/domain"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

func newTestTokenService(t *testing.T) (*TokenService, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	svc, err := NewTokenService(config.AuthConfig{
		JWTSecret:     testSecret,
		TokenLifetime: time.Hour,
	}, clk)
	require.NoError(t, err)
	return svc, clk
}

func TestNewTokenService(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService(config.AuthConfig{JWTSecret: "short", TokenLifetime: time.Hour}, nil)
	assert.Error(t, err)

	_, err = NewTokenService(config.AuthConfig{JWTSecret: testSecret}, nil)
	assert.Error(t, err)

	svc, err := NewTokenService(config.AuthConfig{JWTSecret: testSecret, TokenLifetime: time.Minute}, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc.clock)
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clk := newTestTokenService(t)

	token, err := svc.Generate(ctx, 42, domain.RoleInstructor)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, domain.RoleInstructor, claims.Role)
	assert.Equal(t, clk.Now().Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, clk.Now().Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestTokenValidationFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		svc, _ := newTestTokenService(t)
		_, err := svc.Validate(ctx, "")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("expired", func(t *testing.T) {
		svc, clk := newTestTokenService(t)
		token, err := svc.Generate(ctx, 1, domain.RoleStudent)
		require.NoError(t, err)

		clk.Add(time.Hour + time.Minute)
		_, err = svc.Validate(ctx, token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("within_clock_skew", func(t *testing.T) {
		svc, clk := newTestTokenService(t)
		token, err := svc.Generate(ctx, 1, domain.RoleStudent)
		require.NoError(t, err)

		clk.Add(time.Hour + 10*time.Second)
		_, err = svc.Validate(ctx, token)
		assert.NoError(t, err)
	})

	t.Run("wrong_secret", func(t *testing.T) {
		svc, clk := newTestTokenService(t)
		other, err := NewTokenService(config.AuthConfig{
			JWTSecret:     "another-secret-that-is-long-enough-too",
			TokenLifetime: time.Hour,
		}, clk)
		require.NoError(t, err)

		token, err := other.Generate(ctx, 1, domain.RoleStudent)
		require.NoError(t, err)
		_, err = svc.Validate(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		svc, _ := newTestTokenService(t)
		_, err := svc.Validate(ctx, "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown_role", func(t *testing.T) {
		svc, clk := newTestTokenService(t)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
			Role: "janitor",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "1",
				ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
			},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.Validate(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no_expiry", func(t *testing.T) {
		svc, _ := newTestTokenService(t)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
			Role:             domain.RoleStudent,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.Validate(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
