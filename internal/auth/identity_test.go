package auth_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/internal/auth"
	"github.com/opsdeck/opsdeck/internal/common/errors"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestParseIdentity(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub":  "u123",
		"name": "Ahmet Yılmaz",
	})

	identity, err := auth.ParseIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, "u123", identity.UserID)
	assert.Equal(t, "Ahmet Yılmaz", identity.DisplayName)
}

func TestParseIdentityWithoutName(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "u123"})

	identity, err := auth.ParseIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, "u123", identity.UserID)
	assert.Equal(t, "", identity.DisplayName)
}

func TestParseIdentityErrors(t *testing.T) {
	tests := []struct {
		name  string
		token string
		kind  errors.Kind
	}{
		{"empty token", "", errors.KindUnauthorized},
		{"garbage token", "not-a-jwt", errors.KindMalformed},
		{"missing subject", signedToken(t, jwt.MapClaims{"name": "Ada"}), errors.KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ParseIdentity(tt.token)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}
}
