// Package auth issues and verifies signed session and password reset tokens
// and hashes user credentials.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "scribe"

// Token purposes. A token signed for one purpose is never accepted for another.
const (
	PurposeSession       = "session"
	PurposePasswordReset = "password_reset"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, wrong purpose, malformed or expired.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims carried by every token.
type Claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenManager signs and verifies HS256 tokens with the application secret.
type TokenManager struct {
	secret   []byte
	resetTTL time.Duration
	now      func() time.Time
}

// NewTokenManager returns a TokenManager; resetTTL bounds password reset tokens.
func NewTokenManager(secret string, resetTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// ResetTTL returns the lifetime of reset tokens.
func (m *TokenManager) ResetTTL() time.Duration {
	return m.resetTTL
}

// IssueSession signs a session token for userID valid for ttl.
func (m *TokenManager) IssueSession(userID string, ttl time.Duration) (string, *Claims, error) {
	return m.issue(userID, PurposeSession, ttl)
}

// ParseSession verifies a session token.
func (m *TokenManager) ParseSession(token string) (*Claims, error) {
	return m.parse(token, PurposeSession)
}

// IssueReset signs a password reset token for userID.
func (m *TokenManager) IssueReset(userID string) (string, error) {
	token, _, err := m.issue(userID, PurposePasswordReset, m.resetTTL)
	return token, err
}

// ParseReset verifies a reset token and returns the user id it was issued for.
func (m *TokenManager) ParseReset(token string) (string, error) {
	claims, err := m.parse(token, PurposePasswordReset)
	if err != nil {
		return "", err
	}
	return claims.UserID(), nil
}

func (m *TokenManager) issue(userID, purpose string, ttl time.Duration) (string, *Claims, error) {
	if len(m.secret) == 0 {
		return "", nil, fmt.Errorf("token secret not configured")
	}
	if userID == "" {
		return "", nil, fmt.Errorf("token subject is empty")
	}

	now := m.now()
	claims := &Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

func (m *TokenManager) parse(token, purpose string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
