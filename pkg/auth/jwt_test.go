package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_RoundTrip(t *testing.T) {
	v := NewValidator("s3cret")
	require.True(t, v.Enabled())

	token, err := v.GenerateToken(7, "nour", "cashier", time.Hour)
	require.NoError(t, err)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "nour", claims.Username)
	assert.Equal(t, "cashier", claims.Role)
}

func TestValidator_Rejects(t *testing.T) {
	v := NewValidator("s3cret")

	expired, err := v.GenerateToken(7, "nour", "cashier", -time.Minute)
	require.NoError(t, err)
	_, err = v.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewValidator("other").GenerateToken(7, "nour", "cashier", time.Hour)
	require.NoError(t, err)
	_, err = v.ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Username: "ghost"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = v.ValidateToken(anonymous)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 7}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidator_Disabled(t *testing.T) {
	var nilValidator *Validator
	assert.False(t, nilValidator.Enabled())

	v := NewValidator("")
	assert.False(t, v.Enabled())
	_, err := v.GenerateToken(1, "a", "b", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
	_, err = v.ValidateToken("x")
	assert.ErrorIs(t, err, ErrMissingSecret)
}
