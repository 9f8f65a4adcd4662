// Package token issues and validates staff session tokens. Tokens are
// stateless JWTs, made revocable through a per-user watermark kept in
// the cache store: any token issued before the watermark is rejected.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"loyalty-promo-backend/internal/common/kv"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Revoker records and reads per-user revocation watermarks.
type Revoker interface {
	Revoke(ctx context.Context, userID int64) error
	// RevokedAt returns the watermark for the user, or the zero time
	// when no revocation is in effect.
	RevokedAt(ctx context.Context, userID int64) (time.Time, error)
}

type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
}

func NewManager(secret string, ttl time.Duration, revoker Revoker) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, revoker: revoker}
}

// Issue signs a token for the staff user, valid for the configured
// lifetime and carrying its issuance timestamp.
func (m *Manager) Issue(userID int64, username, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature and expiry, then consults the revocation
// watermark. Callers treat any returned error as "unauthenticated".
func (m *Manager) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	revokedAt, err := m.revoker.RevokedAt(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if !revokedAt.IsZero() && claims.IssuedAt != nil && claims.IssuedAt.Time.Before(revokedAt) {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

func (m *Manager) Revoke(ctx context.Context, userID int64) error {
	return m.revoker.Revoke(ctx, userID)
}

// KVRevoker keeps watermarks in the cache store. The key lives for the
// maximum token lifetime, after which every token issued before the
// watermark has expired anyway.
type KVRevoker struct {
	store kv.Store
	ttl   time.Duration
}

func NewKVRevoker(store kv.Store, maxTokenLifetime time.Duration) *KVRevoker {
	return &KVRevoker{store: store, ttl: maxTokenLifetime}
}

func revocationKey(userID int64) string {
	return fmt.Sprintf("revoked:user:%d", userID)
}

func (r *KVRevoker) Revoke(ctx context.Context, userID int64) error {
	watermark := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return r.store.Set(ctx, revocationKey(userID), watermark, r.ttl)
}

func (r *KVRevoker) RevokedAt(ctx context.Context, userID int64) (time.Time, error) {
	val, err := r.store.Get(ctx, revocationKey(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	millis, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed revocation watermark: %w", err)
	}
	return time.UnixMilli(millis), nil
}
