// Package auth gates WebSocket registration behind a bearer JWT, extracted
// from either the Authorization header or a query parameter.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the bearer of a splitterd token.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 JWTs.
type Manager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewManager creates a Manager signing and verifying with secretKey.
func NewManager(secretKey string, tokenDuration time.Duration) *Manager {
	return &Manager{secretKey: []byte(secretKey), tokenDuration: tokenDuration}
}

// Generate creates a token identifying subject.
func (m *Manager) Generate(subject string) (string, error) {
	claims := &Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "isplitter",
			Subject:   subject,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify validates tokenString and returns its claims.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// extractToken pulls a bearer token from the query parameter first (the
// common case for WebSocket upgrades, which cannot set arbitrary headers
// from a browser), falling back to the Authorization header.
func extractToken(r *http.Request) (string, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	authHeader := r.Header.Get("Authorization")
	const bearerPrefix = "Bearer "
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix), nil
	}
	return "", errors.New("no token in query parameter or authorization header")
}

// Authenticate validates the bearer token on r and returns its claims. The
// caller should reject the request with 401 if err != nil, before any
// splitter client is registered.
func (m *Manager) Authenticate(r *http.Request) (*Claims, error) {
	token, err := extractToken(r)
	if err != nil {
		return nil, err
	}
	return m.Verify(token)
}
