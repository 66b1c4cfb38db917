// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

package kyc

import (
	"context"
	"time"

	"github.com/visionverse/identity-api/internal/identity"
)

// # Verification Store Contract

// linkTTL bounds how long a user→session link and its cached status survive.
// Matches the browser session lifetime: once the session cookie is gone the
// link is the only recovery path, and it should not outlive it by much.
const linkTTL = 48 * time.Hour

// Store persists the small, TTL-bound state that must survive outside the
// browser session: webhook idempotency markers, the user→verification-session
// link, and the last authoritative status per session.
//
// This is deliberately not a user store — everything here expires.
type Store interface {
	// MarkWebhook records that a webhook for (sessionID, status) was applied.
	// It reports true for the first writer and false for replays.
	MarkWebhook(ctx context.Context, sessionID string, status identity.Status) (bool, error)

	// SaveLink records which verification session belongs to a user.
	SaveLink(ctx context.Context, userID, sessionID string) error

	// Link returns the verification session linked to a user, or "" if none.
	Link(ctx context.Context, userID string) (string, error)

	// SaveStatus caches the last authoritative status of a session.
	SaveStatus(ctx context.Context, sessionID string, status identity.Status) error

	// LastStatus returns the cached status of a session, or "" if none.
	LastStatus(ctx context.Context, sessionID string) (identity.Status, error)
}
