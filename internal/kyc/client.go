// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

/*
Package kyc drives the identity-verification workflow against the external
verification service.

It owns three concerns: the HTTP client for the service (including the shared
bearer-credential cache), the verification session manager that links a
logged-in user to a verification session, and the webhook trust gate that
validates asynchronous status callbacks before they may touch session state.
*/
package kyc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/visionverse/identity-api/internal/identity"
	"github.com/visionverse/identity-api/internal/platform/constants"
)

// tokenExpiryMargin is the safety window before expiry inside which a cached
// bearer token is treated as already dead. No request ever leaves with a
// token inside this margin.
const tokenExpiryMargin = 5 * time.Minute

// # Verification Service Surface

// CreateSessionInput is the request for a new verification session.
type CreateSessionInput struct {
	// Callback is the server-reachable webhook URL.
	Callback string `json:"callback"`
	// VendorData correlates the verification session to our stable user id.
	VendorData string `json:"vendor_data"`
	// Features selects the verification feature set (e.g. "OCR + FACE").
	Features string `json:"features"`
	// RedirectURL is the browser-reachable page the flow returns to.
	RedirectURL string `json:"redirect_url"`
}

// VerificationSession is the service's handle for a created session.
type VerificationSession struct {
	SessionID       string `json:"session_id"`
	VerificationURL string `json:"url"`
}

// SessionStatus is the authoritative state of a verification session.
type SessionStatus struct {
	SessionID string          `json:"session_id"`
	Status    identity.Status `json:"status"`
}

// API is the surface of the verification service the rest of the package
// depends on. The concrete [Client] implements it; tests substitute fakes.
type API interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*VerificationSession, error)
	SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error)
}

// # Upstream Errors

// UpstreamError carries a non-success answer from the verification service.
//
// Session creation is not idempotent server-side, so the failure is surfaced
// to the caller with the upstream status and body instead of being retried —
// a blind retry could mint duplicate sessions.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("kyc: verification service responded with status %d", e.StatusCode)
}

// # Bearer Credential Cache

// Credential is the process-wide cached bearer credential for the
// verification service. It is an explicit owned object injected into the
// [Client] rather than a hidden singleton.
//
// # Concurrency
//
// The mutex makes the cache safe under concurrent requests; a refresh in one
// request blocks the others briefly rather than fanning out duplicate token
// exchanges.
type Credential struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewCredential returns an empty credential cache.
func NewCredential() *Credential {
	return &Credential{}
}

// # Client

// Client talks to the external verification service.
type Client struct {
	httpClient *http.Client

	baseURL      string
	authURL      string
	clientID     string
	clientSecret string

	credential *Credential

	// now is swapped in tests to exercise the expiry margin.
	now func() time.Time
}

// NewClient builds the verification-service client around an injected
// credential cache.
func NewClient(baseURL, authURL, clientID, clientSecret string, credential *Credential) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: constants.UpstreamTimeout},
		baseURL:      strings.TrimRight(baseURL, "/"),
		authURL:      strings.TrimRight(authURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		credential:   credential,
		now:          time.Now,
	}
}

// accessToken returns a bearer token guaranteed to live past the expiry
// margin, exchanging client credentials only when the cache is empty or
// stale.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.credential.mu.Lock()
	defer c.credential.mu.Unlock()

	if c.credential.token != "" && c.now().Before(c.credential.expiresAt) {
		return c.credential.token, nil
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	body := strings.NewReader(url.Values{"grant_type": {"client_credentials"}}.Encode())

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+"/auth/v2/token", body)
	if err != nil {
		return "", fmt.Errorf("kyc: build token request: %w", err)
	}
	request.Header.Set("Authorization", "Basic "+basic)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("kyc: token exchange failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("kyc: token exchange returned status %d", response.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("kyc: token decode failed: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("kyc: token exchange returned empty token")
	}

	c.credential.token = payload.AccessToken
	c.credential.expiresAt = c.now().
		Add(time.Duration(payload.ExpiresIn) * time.Second).
		Add(-tokenExpiryMargin)

	return c.credential.token, nil
}

// CreateSession asks the verification service for a new session.
//
// Any status other than 201 surfaces as an [*UpstreamError]; there is no
// retry.
func (c *Client) CreateSession(ctx context.Context, input CreateSessionInput) (*VerificationSession, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("kyc: marshal session request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/session/", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("kyc: build session request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("kyc: session create failed: %w", err)
	}
	defer response.Body.Close()

	responseBody, _ := io.ReadAll(io.LimitReader(response.Body, constants.WebhookMaxBodyBytes))

	if response.StatusCode != http.StatusCreated {
		return nil, &UpstreamError{StatusCode: response.StatusCode, Body: responseBody}
	}

	created := &VerificationSession{}
	if err := json.Unmarshal(responseBody, created); err != nil {
		return nil, fmt.Errorf("kyc: session decode failed: %w", err)
	}
	if created.SessionID == "" {
		return nil, fmt.Errorf("kyc: session create returned no session_id")
	}
	return created, nil
}

// SessionStatus fetches the authoritative status of a verification session.
func (c *Client) SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/session/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("kyc: build status request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("kyc: status fetch failed: %w", err)
	}
	defer response.Body.Close()

	responseBody, _ := io.ReadAll(io.LimitReader(response.Body, constants.WebhookMaxBodyBytes))

	if response.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: response.StatusCode, Body: responseBody}
	}

	status := &SessionStatus{}
	if err := json.Unmarshal(responseBody, status); err != nil {
		return nil, fmt.Errorf("kyc: status decode failed: %w", err)
	}
	return status, nil
}
