package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// TokenVerifier validates a bearer token and returns the caller it
// identifies. Implemented by OIDCVerifier in production and by stubs in
// tests.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Caller, error)
}

// OIDCVerifier validates ID tokens against an OpenID Connect provider's
// published keys. Works with any standard issuer, including Firebase's
// securetoken endpoint.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer's configuration and key set
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify checks the token's signature, issuer, audience, and expiry, and
// extracts the caller identity from its claims
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Caller, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}

	return &Caller{
		ID:            idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}
