package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoCredential = errors.New("no credential")
	ErrInvalidToken = errors.New("invalid token")
)

// Provider verifies bearer tokens for the HTTP surface and supplies the
// service credential the channel setup requires. A session that cannot
// obtain a credential must not attempt any subscription.
type Provider struct {
	secret       []byte
	serviceToken string
}

func New(secret, serviceToken string) *Provider {
	return &Provider{
		secret:       []byte(secret),
		serviceToken: serviceToken,
	}
}

// Verify parses and validates a bearer token (HMAC signature and expiry)
// and returns its claims.
func (p *Provider) Verify(tokenString string) (jwt.MapClaims, error) {
	const op = "auth.Provider.Verify"

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// Credential returns the bearer credential used when opening change
// channels. A missing or expired service token is terminal for the setup
// attempt.
func (p *Provider) Credential(ctx context.Context) (string, error) {
	const op = "auth.Provider.Credential"

	if p.serviceToken == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNoCredential)
	}

	if _, err := p.Verify(p.serviceToken); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return p.serviceToken, nil
}
