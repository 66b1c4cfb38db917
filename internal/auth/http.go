// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

/*
Package auth implements the authentication session state machine and its HTTP
delivery layer.

The lifecycle it drives: Anonymous → ProviderPending (browser parked at the
identity provider) → Authenticated (normalized profile in the session) →
LoggedOut. Every transition is carried entirely by the sealed browser session;
the server keeps no login state of its own.

# Architecture

The handler is a thin mediation layer between the web and the provider
adapters:
  - Protocol: redirect-based for browser flows, JSON for the token flow.
  - Security: signed state parameters plus a session nonce bind each callback
    to the browser that initiated it.
  - Normalization: adapters return one canonical [identity.UserIdentity].
*/
package auth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/visionverse/identity-api/internal/auth/provider"
	"github.com/visionverse/identity-api/internal/identity"
	"github.com/visionverse/identity-api/internal/platform/apperr"
	"github.com/visionverse/identity-api/internal/platform/config"
	"github.com/visionverse/identity-api/internal/platform/constants"
	"github.com/visionverse/identity-api/internal/platform/ctxutil"
	requestutil "github.com/visionverse/identity-api/internal/platform/request"
	"github.com/visionverse/identity-api/internal/platform/respond"
	"github.com/visionverse/identity-api/internal/platform/validate"
	"github.com/visionverse/identity-api/internal/session"

	"log/slog"
)

// Error codes carried to the login page as the `error` query parameter.
const (
	errCodeAuthFailed   = "auth_failed"
	errCodeUnauthorized = "unauthorized"
)

// # Definitions & Constructors

// Handler implements the authentication endpoints.
type Handler struct {
	registry *provider.Registry
	sessions *session.Manager
	signer   *StateSigner
	cfg      *config.Config
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(registry *provider.Registry, sessions *session.Manager, signer *StateSigner, cfg *config.Config) *Handler {
	return &Handler{
		registry: registry,
		sessions: sessions,
		signer:   signer,
		cfg:      cfg,
	}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - GET  /check                : Pure read of the authentication state.
//   - POST /logout               : Destroys the whole session.
//   - GET  /{provider}           : Starts a provider login.
//   - GET  /{provider}/callback  : Provider redirect target.
//   - POST /{provider}/callback  : form_post responses and the token flow.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/check", handler.check)
	router.Post("/logout", handler.logout)
	router.Get("/{provider}", handler.initiate)
	router.Get("/{provider}/callback", handler.callback)
	router.Post("/{provider}/callback", handler.callback)

	return router
}

/*
Check reports whether the browser holds an authenticated session.

GET /api/auth/check

Description: Pure read — never mutates session state.

Response:
  - 200: {"isAuthenticated": bool, "user": {email, displayName}?}
*/
func (handler *Handler) check(writer http.ResponseWriter, request *http.Request) {
	sess := session.FromContext(request.Context())

	if !sess.Authenticated() {
		respond.OK(writer, map[string]any{"isAuthenticated": false})
		return
	}

	respond.OK(writer, map[string]any{
		"isAuthenticated": true,
		"user": map[string]string{
			"email":       sess.User.Email,
			"displayName": sess.User.DisplayName,
		},
	})
}

/*
Initiate starts a provider login.

GET /api/auth/{provider}?returnTo=/path

Description: Stores the requested return path and a fresh nonce in the
session, then redirects the browser to the provider's authorization endpoint
with a signed state parameter.

Response:
  - 302: Provider authorization URL
  - 302: {login}?error=auth_failed on unknown/unconfigured provider
*/
func (handler *Handler) initiate(writer http.ResponseWriter, request *http.Request) {
	log := ctxutil.GetLogger(request.Context())

	providerName, err := identity.ParseProvider(requestutil.Param(request, "provider"))
	if err != nil {
		handler.failRedirect(writer, request, errCodeAuthFailed, "Unknown identity provider")
		return
	}

	adapter, ok := handler.registry.Get(providerName)
	if !ok {
		handler.failRedirect(writer, request, errCodeAuthFailed, "Identity provider not configured")
		return
	}

	sess := session.FromContext(request.Context())

	// Record the return path for the post-login redirect. Anything that is
	// not a same-origin path is dropped rather than round-tripped.
	if returnTo := request.URL.Query().Get("returnTo"); returnTo != "" {
		v := &validate.Validator{}
		if v.RelativePath("returnTo", returnTo); v.HasErrors() {
			log.WarnContext(request.Context(), "return_to_rejected", slog.String("return_to", returnTo))
		} else {
			sess.ReturnTo = returnTo
		}
	}

	sess.AuthNonce = uuid.NewString()

	state, err := handler.signer.Issue(providerName, sess.AuthNonce)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	authURL, err := adapter.AuthCodeURL(state)
	if err != nil {
		handler.failRedirect(writer, request, errCodeAuthFailed, "Provider does not support browser login")
		return
	}

	// The nonce must be on the browser before it leaves for the provider.
	if err := handler.sessions.Save(writer, sess); err != nil {
		respond.Error(writer, request, apperr.SessionPersistence(err))
		return
	}

	log.InfoContext(request.Context(), "auth_initiated", slog.String("provider", string(providerName)))
	http.Redirect(writer, request, authURL, http.StatusFound)
}

/*
Callback completes a provider login.

GET|POST /api/auth/{provider}/callback

Description: Validates the signed state against the session nonce, lets the
provider adapter exchange and normalize the result, establishes the session
and consumes the pending return path exactly once.

Response:
  - 302: {frontend}{returnTo|/welcome} on success
  - 302: {login}?error=auth_failed|unauthorized&message=… on failure
  - 200/401: JSON for the Apple token flow (no browser redirect)
*/
func (handler *Handler) callback(writer http.ResponseWriter, request *http.Request) {
	log := ctxutil.GetLogger(request.Context())

	providerName, err := identity.ParseProvider(requestutil.Param(request, "provider"))
	if err != nil {
		handler.failRedirect(writer, request, errCodeAuthFailed, "Unknown identity provider")
		return
	}

	adapter, ok := handler.registry.Get(providerName)
	if !ok {
		handler.failRedirect(writer, request, errCodeAuthFailed, "Identity provider not configured")
		return
	}

	// Token-based flow: a native client posts the identity token as JSON and
	// expects JSON back — there is no browser to redirect.
	if providerName == identity.ProviderApple && request.Method == http.MethodPost {
		handler.tokenCallback(writer, request, adapter)
		return
	}

	// ParseForm merges the query string with a form_post body, so redirect
	// and form_post deliveries read the same way.
	if err := request.ParseForm(); err != nil {
		handler.failRedirect(writer, request, errCodeAuthFailed, "Malformed callback request")
		return
	}
	query := request.Form
	sess := session.FromContext(request.Context())

	// The provider reported failure (user denied consent, bad client, ...).
	if providerError := query.Get("error"); providerError != "" {
		log.WarnContext(request.Context(), "provider_callback_error", slog.String("error", providerError))
		handler.failRedirect(writer, request, errCodeAuthFailed, "Provider reported an error")
		return
	}

	claims, err := handler.signer.Verify(query.Get("state"))
	if err != nil {
		log.WarnContext(request.Context(), "state_rejected", slog.String("error", err.Error()))
		handler.failRedirect(writer, request, errCodeAuthFailed, "Login attempt expired or invalid")
		return
	}
	if claims.Provider != providerName {
		handler.failRedirect(writer, request, errCodeAuthFailed, "Login attempt expired or invalid")
		return
	}

	// A dropped cookie means we cannot tie this callback to any browser.
	// That is the caller's unauthorized, not a server error. An already
	// authenticated session is exempt: a double-submitted callback simply
	// re-establishes the same user.
	if sess.AuthNonce == "" || sess.AuthNonce != claims.Nonce {
		if !sess.Authenticated() {
			handler.failRedirect(writer, request, errCodeUnauthorized, "No login session for this browser")
			return
		}
	}

	code := query.Get("code")
	if code == "" {
		handler.failRedirect(writer, request, errCodeUnauthorized, "Provider returned no user")
		return
	}

	ctx, cancel := context.WithTimeout(request.Context(), constants.UpstreamTimeout)
	defer cancel()

	user, err := adapter.HandleCallback(ctx, provider.CallbackInput{Code: code})
	if err != nil {
		log.ErrorContext(request.Context(), "provider_callback_failed",
			slog.String("provider", string(providerName)),
			slog.String("error", err.Error()),
		)
		handler.failRedirect(writer, request, errCodeAuthFailed, "Provider authentication failed")
		return
	}

	handler.establish(sess, user)
	returnTo := sess.ConsumeReturnTo()
	if returnTo == "" {
		returnTo = constants.DefaultReturnTo
	}

	if err := handler.sessions.Save(writer, sess); err != nil {
		log.ErrorContext(request.Context(), "session_save_failed", slog.String("error", err.Error()))
		handler.failRedirect(writer, request, errCodeAuthFailed, "Could not establish session")
		return
	}

	log.InfoContext(request.Context(), "auth_established",
		slog.String("provider", string(providerName)),
		slog.String("user_id", user.ID),
	)
	http.Redirect(writer, request, handler.cfg.FrontendURL+returnTo, http.StatusFound)
}

// tokenCallback handles the native-client flow: the identity token arrives in
// the request body and the response is JSON.
func (handler *Handler) tokenCallback(writer http.ResponseWriter, request *http.Request, adapter provider.Adapter) {
	var input struct {
		IdentityToken string `json:"identity_token"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.IdentityToken == "" {
		respond.Error(writer, request, validate.RequiredError("identity_token", "is required"))
		return
	}

	ctx, cancel := context.WithTimeout(request.Context(), constants.UpstreamTimeout)
	defer cancel()

	user, err := adapter.HandleCallback(ctx, provider.CallbackInput{IdentityToken: input.IdentityToken})
	if err != nil {
		ctxutil.GetLogger(request.Context()).WarnContext(request.Context(),
			"identity_token_rejected", slog.String("error", err.Error()))
		respond.Error(writer, request, apperr.Unauthorized("Identity token rejected"))
		return
	}

	sess := session.FromContext(request.Context())
	handler.establish(sess, user)

	if err := handler.sessions.Save(writer, sess); err != nil {
		respond.Error(writer, request, apperr.SessionPersistence(err))
		return
	}

	respond.OK(writer, map[string]any{
		"isAuthenticated": true,
		"user": map[string]string{
			"email":       user.Email,
			"displayName": user.DisplayName,
		},
	})
}

/*
Logout destroys the session.

POST /api/auth/logout

Description: Clears user, pending return path and KYC linkage in one step.
Idempotent — succeeds whether or not a session existed.

Response:
  - 200: {"success": true, "redirectUrl": "{frontend}/login"}
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	handler.sessions.Clear(writer)

	respond.OK(writer, map[string]any{
		"success":     true,
		"redirectUrl": handler.cfg.LoginURL(),
	})
}

// # Helpers

// establish records the authenticated user on the session.
//
// Re-authentication by the same user keeps the verification linkage; a
// different user on the same browser must not inherit it.
func (handler *Handler) establish(sess *session.Session, user *identity.UserIdentity) {
	if sess.User != nil && sess.User.ID == user.ID && sess.User.Provider == user.Provider {
		user.KYCStatus = sess.User.KYCStatus
	} else {
		sess.KYCSessionID = ""
		sess.KYCRedirectURL = ""
	}
	sess.User = user
	sess.AuthNonce = ""
}

// failRedirect degrades any login failure to the frontend login page with a
// machine-readable error code and a URL-encoded, client-safe message.
func (handler *Handler) failRedirect(writer http.ResponseWriter, request *http.Request, code, message string) {
	values := url.Values{}
	values.Set("error", code)
	if message != "" {
		values.Set("message", message)
	}
	http.Redirect(writer, request, handler.cfg.LoginURL()+"?"+values.Encode(), http.StatusFound)
}
