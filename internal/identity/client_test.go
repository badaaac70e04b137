package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymclub/internal/model"
)

const testSecret = "super-secret-project-key"

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestClient_ValidateAccessToken(t *testing.T) {
	client := NewClient("http://identity.local", "anon", testSecret)

	t.Run("valid token yields the identity and its role hint", func(t *testing.T) {
		token := mintToken(t, testSecret, jwt.MapClaims{
			"sub":   "11111111-2222-3333-4444-555555555555",
			"email": "socio@club.test",
			"exp":   time.Now().Add(time.Hour).Unix(),
			"user_metadata": map[string]any{
				"rol": "admin",
			},
		})

		ident, err := client.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, "11111111-2222-3333-4444-555555555555", ident.ID)
		assert.Equal(t, "socio@club.test", ident.Email)

		hint, ok := ident.RoleHint()
		require.True(t, ok)
		assert.Equal(t, model.RoleAdmin, hint)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token := mintToken(t, testSecret, jwt.MapClaims{
			"sub": "11111111-2222-3333-4444-555555555555",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		_, err := client.ValidateAccessToken(token)
		require.Error(t, err)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		token := mintToken(t, "some-other-project", jwt.MapClaims{
			"sub": "11111111-2222-3333-4444-555555555555",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err := client.ValidateAccessToken(token)
		require.Error(t, err)
	})

	t.Run("token without a subject is rejected", func(t *testing.T) {
		token := mintToken(t, testSecret, jwt.MapClaims{
			"email": "socio@club.test",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})

		_, err := client.ValidateAccessToken(token)
		require.Error(t, err)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := client.ValidateAccessToken("not-a-jwt")
		require.Error(t, err)
	})
}
