// Package auth issues and validates the bearer tokens that protect the API.
package auth

import (
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aria-ai/aria/internal/errors"
)

// Claims are the JWT claims carried by an assistant token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Manager signs and parses HS256 tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a token manager. The secret must be non-empty.
func NewManager(secret []byte, ttl time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New(errors.CodeConfigInvalid, "JWT secret not configured", errors.CategorySystem)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: secret, ttl: ttl}, nil
}

// IssueToken creates a signed token for the user.
func (m *Manager) IssueToken(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New(errors.CodeInvalidInput, "user id required", errors.CategoryUser)
	}

	now := time.Now()
	expiresAt := now.Add(m.ttl)

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CodeAuthInvalidToken, "failed to sign token", errors.CategorySystem)
	}
	return signed, expiresAt, nil
}

// ParseToken validates the token and returns its claims.
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New(errors.CodeAuthInvalidToken, "token is empty", errors.CategoryUser)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Reject algorithm substitution.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New(errors.CodeAuthInvalidToken, "unexpected signing method", errors.CategoryUser)
		}
		return m.secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Wrap(err, errors.CodeAuthExpired, "token expired", errors.CategoryUser)
		}
		return nil, errors.Wrap(err, errors.CodeAuthInvalidToken, "invalid token", errors.CategoryUser)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New(errors.CodeAuthInvalidToken, "invalid token claims", errors.CategoryUser)
	}
	if claims.UserID == "" {
		return nil, errors.New(errors.CodeAuthInvalidToken, "token missing user id", errors.CategoryUser)
	}
	return claims, nil
}
