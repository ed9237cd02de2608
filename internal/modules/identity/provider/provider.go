// Package provider verifies identities issued by external sign-in providers.
package provider

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid or expired identity token")

// ExternalIdentity is the account an external provider vouches for.
type ExternalIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// TokenVerifier checks an ID token minted by the platform identity provider.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*ExternalIdentity, error)
}
