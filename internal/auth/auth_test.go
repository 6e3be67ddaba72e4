package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, expiresIn time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "floorsync",
		"exp": time.Now().Add(expiresIn).Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	return signed
}

func TestProvider_Verify(t *testing.T) {
	p := New(testSecret, "")

	t.Run("valid token", func(t *testing.T) {
		claims, err := p.Verify(signToken(t, testSecret, time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "floorsync", claims["sub"])
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := p.Verify(signToken(t, "other-secret", time.Hour))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := p.Verify(signToken(t, testSecret, -time.Hour))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := p.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestProvider_Credential(t *testing.T) {
	t.Run("valid service token", func(t *testing.T) {
		token := signToken(t, testSecret, time.Hour)
		p := New(testSecret, token)

		cred, err := p.Credential(context.Background())
		require.NoError(t, err)
		assert.Equal(t, token, cred)
	})

	t.Run("missing service token", func(t *testing.T) {
		p := New(testSecret, "")

		_, err := p.Credential(context.Background())
		assert.ErrorIs(t, err, ErrNoCredential)
	})

	t.Run("expired service token", func(t *testing.T) {
		p := New(testSecret, signToken(t, testSecret, -time.Hour))

		_, err := p.Credential(context.Background())
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
