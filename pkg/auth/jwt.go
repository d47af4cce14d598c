// Package auth validates bearer tokens issued by the user service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("auth: signing secret is not configured")
	ErrInvalidToken  = errors.New("auth: invalid token")
)

// Claims are the identity fields carried by a user service token
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Validator checks HMAC-signed tokens against a shared secret
type Validator struct {
	secret []byte
}

// NewValidator creates a validator. An empty secret disables validation.
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured
func (v *Validator) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// ValidateToken parses and verifies a token string
func (v *Validator) ValidateToken(tokenString string) (*Claims, error) {
	if !v.Enabled() {
		return nil, ErrMissingSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken signs claims for the given user. The ledger itself never
// issues tokens; this exists for tooling and tests.
func (v *Validator) GenerateToken(userID uint, username, role string, ttl time.Duration) (string, error) {
	if !v.Enabled() {
		return "", ErrMissingSecret
	}
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
