// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: Session cookie configuration and webhook headers.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "visionverse-identity"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 15 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// UpstreamTimeout bounds every remote call to an identity provider or the
	// verification service. On expiry the call is failed, never retried.
	UpstreamTimeout = 10 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Session & Authentication

const (
	// SessionCookieName is the name of the sealed session cookie.
	SessionCookieName = "vv_session"

	// SessionMaxAge is the lifetime of the browser session.
	SessionMaxAge = 24 * time.Hour

	// StateIssuer is the 'iss' claim on signed OAuth state parameters.
	StateIssuer = "visionverse-identity"

	// StateTTL is how long an OAuth state parameter remains valid. A callback
	// arriving after this window is treated as a failed login, not replayed.
	StateTTL = 5 * time.Minute

	// DefaultReturnTo is the post-login landing path when no returnTo was requested.
	DefaultReturnTo = "/welcome"
)

// # Webhooks

const (
	// HeaderWebhookSignature carries the HMAC of the raw webhook body.
	HeaderWebhookSignature = "x-signature"

	// WebhookMaxBodyBytes caps the webhook payload read into memory.
	WebhookMaxBodyBytes = 1 << 20
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixWebhookSeen = "kyc:webhook_seen:"
	RedisPrefixUserLink    = "kyc:user_link:"
	RedisPrefixStatus      = "kyc:status:"
)
