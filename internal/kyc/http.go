// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/visionverse/identity-api/internal/platform/apperr"
	"github.com/visionverse/identity-api/internal/platform/config"
	"github.com/visionverse/identity-api/internal/platform/constants"
	"github.com/visionverse/identity-api/internal/platform/ctxutil"
	"github.com/visionverse/identity-api/internal/platform/respond"
	"github.com/visionverse/identity-api/internal/platform/validate"
	"github.com/visionverse/identity-api/internal/session"
)

// # Definitions & Constructors

// Handler implements the verification endpoints.
type Handler struct {
	service  *Service
	gate     *TrustGate
	sessions *session.Manager
	cfg      *config.Config
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, gate *TrustGate, sessions *session.Manager, cfg *config.Config) *Handler {
	return &Handler{
		service:  service,
		gate:     gate,
		sessions: sessions,
		cfg:      cfg,
	}
}

// Routes returns a [chi.Router] configured with verification routes.
//
// # Endpoints
//   - POST /initiate : Creates a verification session (authenticated).
//   - GET  /status   : Reports verification status (authenticated).
//   - POST /callback : Signed server-to-server webhook.
//   - GET  /callback : Browser return leg of the verification flow.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/initiate", handler.initiate)
	router.Get("/status", handler.status)
	router.Post("/callback", handler.webhook)
	router.Get("/callback", handler.browserReturn)

	return router
}

/*
Initiate creates a verification session for the logged-in user.

POST /api/kyc/initiate

Description: Requires an authenticated session. Upstream failures are
mirrored to the caller with the upstream status and body; nothing is retried.

Response:
  - 200: {"verificationUrl": …, "sessionId": …}
  - 401: {"error": "User not authenticated"}
  - 4xx/5xx: {"error": …, "details": …} mirroring the upstream failure
*/
func (handler *Handler) initiate(writer http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())

	ctx, cancel := context.WithTimeout(request.Context(), constants.UpstreamTimeout)
	defer cancel()

	result, err := handler.service.Initiate(ctx, sess)
	if err != nil {
		handler.upstreamError(writer, request, err, "Failed to initiate KYC verification")
		return
	}

	// The response hands out the session id; it must be on the browser too.
	if err := handler.sessions.Save(writer, sess); err != nil {
		respond.Error(writer, request, apperr.SessionPersistence(err))
		return
	}

	respond.OK(writer, result)
}

/*
Status reports the verification status of the logged-in user.

GET /api/kyc/status

Response:
  - 200: {"kycStatus": …, "kycVerified": bool, "sessionId": …?}
  - 401: {"error": "User not authenticated"}
  - 5xx: {"error": …, "details": …} when the live status fetch fails
*/
func (handler *Handler) status(writer http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())

	ctx, cancel := context.WithTimeout(request.Context(), constants.UpstreamTimeout)
	defer cancel()

	result, err := handler.service.Status(ctx, sess)
	if err != nil {
		handler.upstreamError(writer, request, err, "Failed to check KYC status")
		return
	}

	// Status reads can mutate the session (link recovery, status refresh).
	if err := handler.sessions.Save(writer, sess); err != nil {
		respond.Error(writer, request, apperr.SessionPersistence(err))
		return
	}

	respond.OK(writer, result)
}

/*
Webhook applies an asynchronous status callback from the verification service.

POST /api/kyc/callback

Description: The x-signature header must carry a valid HMAC of the raw body;
anything else is rejected before session state is touched. On a valid
signature the authoritative status is re-fetched by session id — the payload's
own status field is never trusted.

Response:
  - 200: {"success": true}
  - 401: missing or invalid signature (no detail about which)
  - 502: {"error": …} when the authoritative fetch fails
*/
func (handler *Handler) webhook(writer http.ResponseWriter, request *http.Request) {
	log := ctxutil.GetLogger(request.Context())

	body, err := io.ReadAll(io.LimitReader(request.Body, constants.WebhookMaxBodyBytes))
	if err != nil {
		respond.Error(writer, request, apperr.Unauthorized("Invalid webhook request"))
		return
	}

	signature := request.Header.Get(constants.HeaderWebhookSignature)
	if signature == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing signature"))
		return
	}
	if !handler.gate.Verify(body, signature) {
		log.WarnContext(request.Context(), "webhook_signature_rejected")
		respond.Error(writer, request, apperr.Unauthorized("Invalid signature"))
		return
	}

	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if payload.SessionID == "" {
		respond.Error(writer, request, validate.RequiredError("session_id", "is required"))
		return
	}

	ctx, cancel := context.WithTimeout(request.Context(), constants.UpstreamTimeout)
	defer cancel()

	live, first, err := handler.service.Apply(ctx, payload.SessionID)
	if err != nil {
		log.ErrorContext(request.Context(), "webhook_apply_failed", slog.String("error", err.Error()))
		respond.JSON(writer, http.StatusBadGateway, map[string]string{
			"error": "Failed to process verification callback",
		})
		return
	}

	if !first {
		// Replay of an already-applied (session, status) pair: acknowledge
		// without touching anything.
		respond.OK(writer, map[string]bool{"success": true})
		return
	}

	// Server-to-server webhooks carry no browser session; when one is
	// present (same-browser delivery), propagate the status into it.
	sess := session.FromContext(request.Context())
	if sess.Authenticated() && (sess.KYCSessionID == "" || sess.KYCSessionID == payload.SessionID) {
		sess.KYCSessionID = payload.SessionID
		sess.User.KYCStatus = live.Status

		if err := handler.sessions.Save(writer, sess); err != nil {
			respond.Error(writer, request, apperr.SessionPersistence(err))
			return
		}
	}

	log.InfoContext(request.Context(), "webhook_applied",
		slog.String("session_id", payload.SessionID),
		slog.String("status", string(live.Status)),
	)
	respond.OK(writer, map[string]bool{"success": true})
}

/*
BrowserReturn handles the user coming back from the verification flow.

GET /api/kyc/callback

Description: The browser leg carries no signable body, so nothing in the
query is trusted — the status of the session's own verification session is
re-fetched and the user is sent to the welcome page with the result. A
session that lost its verification link (fresh cookie, same user) recovers
it through the store on the way.

Response:
  - 302: {frontend}/welcome?kycStatus=… or {frontend}/welcome?error=true
*/
func (handler *Handler) browserReturn(writer http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())

	if !sess.Authenticated() {
		http.Redirect(writer, request, handler.cfg.WelcomeURL()+"?error=true", http.StatusFound)
		return
	}

	ctx, cancel := context.WithTimeout(request.Context(), constants.UpstreamTimeout)
	defer cancel()

	result, err := handler.service.Status(ctx, sess)
	if err != nil {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(),
			"browser_return_status_failed", slog.String("error", err.Error()))
		http.Redirect(writer, request, handler.cfg.WelcomeURL()+"?error=true", http.StatusFound)
		return
	}

	if err := handler.sessions.Save(writer, sess); err != nil {
		http.Redirect(writer, request, handler.cfg.WelcomeURL()+"?error=true", http.StatusFound)
		return
	}

	values := url.Values{}
	values.Set("kycStatus", string(result.Status))
	http.Redirect(writer, request, handler.cfg.WelcomeURL()+"?"+values.Encode(), http.StatusFound)
}

// # Helpers

// upstreamError maps service failures onto the API error contract:
// [*apperr.AppError] values pass through, [*UpstreamError] values mirror the
// upstream status and body, anything else is a plain 500 with a stable shape.
func (handler *Handler) upstreamError(writer http.ResponseWriter, request *http.Request, err error, message string) {
	if appError := apperr.As(err); appError != nil {
		respond.Error(writer, request, appError)
		return
	}

	log := ctxutil.GetLogger(request.Context())

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		log.ErrorContext(request.Context(), "kyc_upstream_failure",
			slog.Int("status", upstream.StatusCode),
			slog.String("body", string(upstream.Body)),
		)

		var details any = string(upstream.Body)
		if json.Valid(upstream.Body) {
			details = upstream.Body
		}
		respond.JSON(writer, upstream.StatusCode, map[string]any{
			"error":   message,
			"details": details,
		})
		return
	}

	log.ErrorContext(request.Context(), "kyc_request_failed", slog.String("error", err.Error()))
	respond.JSON(writer, http.StatusInternalServerError, map[string]any{
		"error":   message,
		"details": err.Error(),
	})
}
