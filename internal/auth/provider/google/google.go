// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

// Package google implements the Google OAuth2/OIDC provider adapter.
//
// The adapter runs the server-side authorization-code flow and verifies the
// returned ID token against Google's published keys, so the profile fields
// come from a cryptographically validated token rather than a userinfo fetch.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/visionverse/identity-api/internal/auth/provider"
	"github.com/visionverse/identity-api/internal/identity"
)

const issuerURL = "https://accounts.google.com"

// Adapter implements [provider.Adapter] for Google.
type Adapter struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// New discovers Google's OIDC configuration and builds the adapter.
func New(ctx context.Context, clientID, clientSecret, redirectURL string) (*Adapter, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google: oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("google: failed to init oidc provider: %w", err)
	}

	return &Adapter{
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: clientID}),
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// Name returns the provider identifier used by the registry.
func (a *Adapter) Name() identity.Provider {
	return identity.ProviderGoogle
}

// AuthCodeURL builds the Google authorization URL for the signed state.
func (a *Adapter) AuthCodeURL(state string) (string, error) {
	return a.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// HandleCallback exchanges the authorization code, verifies the ID token and
// normalizes the profile.
func (a *Adapter) HandleCallback(ctx context.Context, input provider.CallbackInput) (*identity.UserIdentity, error) {
	if input.Code == "" {
		return nil, errors.New("google: callback missing authorization code")
	}

	token, err := a.oauthConfig.Exchange(ctx, input.Code)
	if err != nil {
		return nil, fmt.Errorf("google: token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google: provider did not return id_token")
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google: id_token verification failed: %w", err)
	}

	var claims struct {
		Subject    string `json:"sub"`
		Email      string `json:"email"`
		Name       string `json:"name"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google: id_token claims parse failed: %w", err)
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("google: id_token missing required claims")
	}

	displayName := claims.Name
	if displayName == "" {
		displayName = claims.Email
	}

	return &identity.UserIdentity{
		ID:          claims.Subject,
		Provider:    identity.ProviderGoogle,
		Email:       claims.Email,
		DisplayName: displayName,
		GivenName:   claims.GivenName,
		FamilyName:  claims.FamilyName,
		PhotoURL:    claims.Picture,
	}, nil
}
