// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

/*
Package provider defines the capability contract every external identity
provider adapter must implement.

Adapters return identity facts only: they translate a provider-specific
callback into one normalized [identity.UserIdentity] and must not perform
session management or auth decisions.
*/
package provider

import (
	"context"
	"errors"

	"github.com/visionverse/identity-api/internal/identity"
)

// ErrRedirectUnsupported is returned by AuthCodeURL for token-based providers
// that have no browser authorization endpoint (Apple mobile flow).
var ErrRedirectUnsupported = errors.New("provider: redirect login not supported")

// CallbackInput carries the raw result of a provider authentication.
//
// Exactly one of the fields is set, depending on the provider's flow.
type CallbackInput struct {
	// Code is the authorization code from an OAuth2 redirect callback.
	Code string

	// IdentityToken is a provider-issued token handed over directly by a
	// native client (token-based flow).
	IdentityToken string
}

// Adapter normalizes a third-party authentication into a canonical user record.
type Adapter interface {
	// Name returns the provider identifier used by the registry and routes.
	Name() identity.Provider

	// AuthCodeURL returns the provider's authorization URL for the given
	// signed state parameter, or [ErrRedirectUnsupported].
	AuthCodeURL(state string) (string, error)

	// HandleCallback validates the provider result and returns the
	// normalized identity. It makes no auth decisions.
	HandleCallback(ctx context.Context, input CallbackInput) (*identity.UserIdentity, error)
}

// # Registry

// Registry is the fixed set of configured adapters, keyed by provider name.
//
// It is populated once at startup and read-only afterwards, so no locking
// is needed.
type Registry struct {
	adapters map[identity.Provider]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[identity.Provider]Adapter)}
}

// Register adds an adapter. Registering the same provider twice replaces it.
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Name()] = adapter
}

// Get returns the adapter for a provider, if configured.
func (r *Registry) Get(name identity.Provider) (Adapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// Names lists the configured providers, for diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, string(name))
	}
	return names
}
