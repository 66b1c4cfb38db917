// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

// Package apple implements the Apple token-based provider adapter.
//
// Native clients obtain an identity token through Sign in with Apple and hand
// it to the server directly; there is no browser redirect leg. The token is
// verified against Apple's published keys via OIDC discovery.
package apple

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/visionverse/identity-api/internal/auth/provider"
	"github.com/visionverse/identity-api/internal/identity"
)

const issuerURL = "https://appleid.apple.com"

// Adapter implements [provider.Adapter] for Apple's token flow.
type Adapter struct {
	verifier *oidc.IDTokenVerifier
}

// New discovers Apple's OIDC configuration and builds the adapter.
func New(ctx context.Context, clientID string) (*Adapter, error) {
	if clientID == "" {
		return nil, errors.New("apple: client id missing")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("apple: failed to init oidc provider: %w", err)
	}

	return &Adapter{
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Name returns the provider identifier used by the registry.
func (a *Adapter) Name() identity.Provider {
	return identity.ProviderApple
}

// AuthCodeURL reports that Apple's token flow has no browser authorization leg.
func (a *Adapter) AuthCodeURL(string) (string, error) {
	return "", provider.ErrRedirectUnsupported
}

// HandleCallback verifies a client-supplied identity token and normalizes
// the embedded claims.
//
// Apple identity tokens carry no display name, so the email's local part
// stands in until the user sets one elsewhere.
func (a *Adapter) HandleCallback(ctx context.Context, input provider.CallbackInput) (*identity.UserIdentity, error) {
	if input.IdentityToken == "" {
		return nil, errors.New("apple: callback missing identity token")
	}

	idToken, err := a.verifier.Verify(ctx, input.IdentityToken)
	if err != nil {
		return nil, fmt.Errorf("apple: identity token verification failed: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("apple: identity token claims parse failed: %w", err)
	}

	if claims.Subject == "" {
		return nil, errors.New("apple: identity token missing subject")
	}

	displayName := claims.Email
	if at := strings.IndexByte(displayName, '@'); at > 0 {
		displayName = displayName[:at]
	}

	return &identity.UserIdentity{
		ID:          claims.Subject,
		Provider:    identity.ProviderApple,
		Email:       claims.Email,
		DisplayName: displayName,
	}, nil
}
