// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

/*
Package identity defines the canonical user record shared by the auth, session
and KYC layers.

Every provider callback is normalized into one [UserIdentity] shape immediately,
so downstream code never branches on provider-specific field presence.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package identity

import "fmt"

// # Providers

// Provider identifies a third-party identity service.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderApple    Provider = "apple"
)

// ParseProvider maps a URL segment onto a known [Provider].
func ParseProvider(name string) (Provider, error) {
	switch Provider(name) {
	case ProviderGoogle, ProviderFacebook, ProviderApple:
		return Provider(name), nil
	default:
		return "", fmt.Errorf("identity: unknown provider %q", name)
	}
}

// # Domain Entities

// UserIdentity is the normalized profile built from a successful provider
// callback. It is immutable after creation except for the KYC status appended
// once verification results arrive.
//
// The record is owned by the browser-held session for the lifetime of that
// session and is never persisted server-side beyond it.
type UserIdentity struct {
	ID          string   `json:"id"`
	Provider    Provider `json:"provider"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	GivenName   string   `json:"given_name,omitempty"`
	FamilyName  string   `json:"family_name,omitempty"`
	PhotoURL    string   `json:"photo_url,omitempty"`

	// KYCStatus is the last verification status applied to this user.
	// Empty until a verification session reports back.
	KYCStatus Status `json:"kyc_status,omitempty"`
}

// # Verification Status

// Status is the verification state reported by the external KYC service.
//
// The set below mirrors the service's vocabulary; an unrecognized value
// round-trips as an opaque string rather than failing.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusInReview   Status = "IN_REVIEW"
	StatusApproved   Status = "APPROVED"
	StatusDeclined   Status = "DECLINED"
	StatusAbandoned  Status = "ABANDONED"
	StatusExpired    Status = "EXPIRED"
)

// Verified reports whether the status represents a completed, approved
// verification.
//
// This is the only place the approved/verified equivalence is encoded:
// verified-ness is always derived, never stored, so the two can not drift
// apart.
func (s Status) Verified() bool {
	return s == StatusApproved
}

// OrPending returns the status itself, or [StatusPending] when unset.
func (s Status) OrPending() Status {
	if s == "" {
		return StatusPending
	}
	return s
}
