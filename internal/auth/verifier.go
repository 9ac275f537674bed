// Package auth verifies bearer tokens issued by the external identity provider.
package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned (wrapped) for every token a verifier rejects.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the verified identity carried by a token.
type Claims struct {
	Subject string
	Email   *string
	Name    *string
}

// Verifier checks a raw token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

func optionalString(claims map[string]any, keys ...string) *string {
	for _, key := range keys {
		if v, ok := claims[key].(string); ok && v != "" {
			return &v
		}
	}
	return nil
}
