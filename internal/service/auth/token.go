package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/coursework/internal/config"
	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/platform/logger"
)

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 32

// Claims are the validated contents of a session token.
type Claims struct {
	UserID    int64
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

type sessionClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HMAC-SHA256 signed session tokens.
type TokenService struct {
	signingKey []byte
	lifetime   time.Duration
	clock      clock.Clock
	clockSkew  time.Duration
}

// NewTokenService creates a TokenService from cfg. clk drives issue and
// expiry times.
func NewTokenService(cfg config.AuthConfig, clk clock.Clock) (*TokenService, error) {
	if len(cfg.JWTSecret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}
	if cfg.TokenLifetime <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}
	if clk == nil {
		clk = clock.New()
	}
	return &TokenService{
		signingKey: []byte(cfg.JWTSecret),
		lifetime:   cfg.TokenLifetime,
		clock:      clk,
		clockSkew:  30 * time.Second,
	}, nil
}

// Generate issues a token for userID acting in role.
func (s *TokenService) Generate(ctx context.Context, userID int64, role domain.Role) (string, error) {
	now := s.clock.Now()
	claims := sessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign session token",
			"error", err,
			"user_id", userID)
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature and time claims of token. It returns
// ErrMissingToken, ErrExpiredToken, ErrTokenNotYetValid or ErrInvalidToken.
func (s *TokenService) Validate(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	log := logger.FromContext(ctx)

	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("session token expired", "error", err)
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("session token not yet valid", "error", err)
			return nil, ErrTokenNotYetValid
		default:
			log.Debug("session token rejected", "error", err)
			return nil, ErrInvalidToken
		}
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}

	out := &Claims{
		UserID:    userID,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
