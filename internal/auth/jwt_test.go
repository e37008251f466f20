package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolldesk/pkg/domain"
	dErrors "enrolldesk/pkg/domain-errors"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-signing-key", "enrolldesk-test")

	token, err := svc.GenerateToken("staff-42", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-42", claims.CallerID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "enrolldesk-test")

	token, err := svc.GenerateToken("staff-42", domain.RoleStaff, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestJWTService_WrongSigningKey(t *testing.T) {
	issuer := NewJWTService("key-one", "enrolldesk-test")
	verifier := NewJWTService("key-two", "enrolldesk-test")

	token, err := issuer.GenerateToken("staff-42", domain.RoleStaff, time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestJWTService_UnknownRole(t *testing.T) {
	svc := NewJWTService("test-signing-key", "enrolldesk-test")

	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := raw.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestJWTService_MissingSubject(t *testing.T) {
	svc := NewJWTService("test-signing-key", "enrolldesk-test")

	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(domain.RoleStaff),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := raw.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestJWTService_GarbageToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "enrolldesk-test")

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
