package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("session expired")
	ErrTokenInvalid = errors.New("session invalid")
	ErrTokenRevoked = errors.New("session revoked")
)

const issuer = "wishlist"

// Claims is the session token payload. The subject is the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID parses the numeric subject.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// SessionManager issues and verifies signed session tokens.
type SessionManager struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
	now     func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, revoker Revoker) *SessionManager {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &SessionManager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoker: revoker,
		now:     time.Now,
	}
}

// Issue returns a signed token for the user and its expiry time.
func (m *SessionManager) Issue(userID int64, username string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    issuer,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, expires, nil
}

// Parse verifies the signature, expiry and revocation state of token.
func (m *SessionManager) Parse(ctx context.Context, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrTokenInvalid
	}

	revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke blocks claims' token for the rest of its lifetime.
func (m *SessionManager) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	return m.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Sub(m.now()))
}
