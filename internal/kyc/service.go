// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

package kyc

import (
	"context"
	"log/slog"

	"github.com/visionverse/identity-api/internal/identity"
	"github.com/visionverse/identity-api/internal/platform/apperr"
	"github.com/visionverse/identity-api/internal/platform/config"
	"github.com/visionverse/identity-api/internal/platform/ctxutil"
	"github.com/visionverse/identity-api/internal/session"
)

// # Verification Session Manager

// Service orchestrates verification sessions for authenticated users.
type Service struct {
	api   API
	store Store

	// Both URLs are derived from the environment's base URLs at startup.
	callbackURL string
	redirectURL string
	features    string
}

// NewService wires the manager with the verification API and store.
func NewService(api API, store Store, cfg *config.Config) *Service {
	return &Service{
		api:         api,
		store:       store,
		callbackURL: cfg.BackendURL + "/api/kyc/callback",
		redirectURL: cfg.WelcomeURL(),
		features:    cfg.KYCFeatures,
	}
}

// InitiateResult is returned to the browser to start the verification flow.
type InitiateResult struct {
	VerificationURL string `json:"verificationUrl"`
	SessionID       string `json:"sessionId"`
}

/*
Initiate creates a verification session for the authenticated user.

Description: Builds the service request with the server-reachable callback
URL, the browser-reachable redirect URL, and the user's stable id as vendor
correlation data. A non-created upstream answer is surfaced unchanged — no
retry, since session creation is not idempotent on the service side.

The caller must save the session after a successful return.
*/
func (service *Service) Initiate(ctx context.Context, sess *session.Session) (*InitiateResult, error) {
	if !sess.Authenticated() {
		return nil, apperr.Unauthorized("User not authenticated")
	}

	created, err := service.api.CreateSession(ctx, CreateSessionInput{
		Callback:    service.callbackURL,
		VendorData:  sess.User.ID,
		Features:    service.features,
		RedirectURL: service.redirectURL,
	})
	if err != nil {
		return nil, err
	}

	sess.KYCSessionID = created.SessionID
	sess.KYCRedirectURL = service.redirectURL

	// Link recovery is best effort: losing it degrades to the known
	// limitation (lost cookie means lost verification linkage), not to a
	// failed initiation.
	if err := service.store.SaveLink(ctx, sess.User.ID, created.SessionID); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "kyc_link_save_failed",
			slog.String("session_id", created.SessionID),
			slog.String("error", err.Error()),
		)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "kyc_session_created",
		slog.String("session_id", created.SessionID),
		slog.String("user_id", sess.User.ID),
	)

	return &InitiateResult{
		VerificationURL: created.VerificationURL,
		SessionID:       created.SessionID,
	}, nil
}

// StatusResult is the browser-facing verification status.
type StatusResult struct {
	Status    identity.Status `json:"kycStatus"`
	Verified  bool            `json:"kycVerified"`
	SessionID string          `json:"sessionId,omitempty"`
}

/*
Status reports the verification state for the authenticated user.

Description: With a linked verification session the live status is fetched
from the service; without one the last status on the user record stands in,
defaulting to PENDING. When the live fetch fails, the cached status recorded
from earlier fetches and webhooks stands in — it only ever holds
service-originated values, so an APPROVED result still never arises locally.

The caller must save the session afterwards: a recovered link or refreshed
status mutates it.
*/
func (service *Service) Status(ctx context.Context, sess *session.Session) (*StatusResult, error) {
	if !sess.Authenticated() {
		return nil, apperr.Unauthorized("User not authenticated")
	}

	// Recover the link when the session lost it (fresh cookie, same user).
	if sess.KYCSessionID == "" {
		if linked, err := service.store.Link(ctx, sess.User.ID); err == nil && linked != "" {
			sess.KYCSessionID = linked
		}
	}

	if sess.KYCSessionID == "" {
		status := sess.User.KYCStatus.OrPending()
		return &StatusResult{Status: status, Verified: status.Verified()}, nil
	}

	live, err := service.api.SessionStatus(ctx, sess.KYCSessionID)
	if err != nil {
		// The cache is written only from authoritative fetches, so serving
		// it stale beats failing the read outright.
		if cached, cacheErr := service.store.LastStatus(ctx, sess.KYCSessionID); cacheErr == nil && cached != "" {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "kyc_status_served_from_cache",
				slog.String("session_id", sess.KYCSessionID),
				slog.String("error", err.Error()),
			)
			sess.User.KYCStatus = cached
			return &StatusResult{
				Status:    cached,
				Verified:  cached.Verified(),
				SessionID: sess.KYCSessionID,
			}, nil
		}
		return nil, err
	}

	sess.User.KYCStatus = live.Status
	if err := service.store.SaveStatus(ctx, sess.KYCSessionID, live.Status); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "kyc_status_cache_failed", slog.String("error", err.Error()))
	}

	return &StatusResult{
		Status:    live.Status,
		Verified:  live.Status.Verified(),
		SessionID: sess.KYCSessionID,
	}, nil
}

/*
Apply fetches the authoritative status for a verification session on behalf
of a validated webhook and records it.

Description: The webhook payload's own status field is never trusted — the
service is re-queried by id. The returned first flag is false for replayed
callbacks, which must not re-apply side effects.
*/
func (service *Service) Apply(ctx context.Context, sessionID string) (*SessionStatus, bool, error) {
	live, err := service.api.SessionStatus(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	if err := service.store.SaveStatus(ctx, sessionID, live.Status); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "kyc_status_cache_failed", slog.String("error", err.Error()))
	}

	first, err := service.store.MarkWebhook(ctx, sessionID, live.Status)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "kyc_webhook_mark_failed", slog.String("error", err.Error()))
		// Idempotency bookkeeping failing must not drop the status update.
		first = true
	}

	return live, first, nil
}
