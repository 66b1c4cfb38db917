// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

package kyc_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionverse/identity-api/internal/identity"
	"github.com/visionverse/identity-api/internal/kyc"
)

// verificationStub fakes the external verification service: the token
// endpoint and the session endpoints on one server.
type verificationStub struct {
	mux *http.ServeMux

	tokenRequests   int
	tokenExpiresIn  int64
	lastBasicUser   string
	lastGrantType   string
	lastBearerToken string

	createStatus int
	createBody   string

	statusStatus int
	statusBody   string
}

func newVerificationStub() *verificationStub {
	stub := &verificationStub{
		mux:            http.NewServeMux(),
		tokenExpiresIn: 3600,
		createStatus:   http.StatusCreated,
		createBody:     `{"session_id":"kyc-1","url":"https://verify.example/flow/kyc-1"}`,
		statusStatus:   http.StatusOK,
		statusBody:     `{"session_id":"kyc-1","status":"APPROVED"}`,
	}

	stub.mux.HandleFunc("POST /auth/v2/token", func(writer http.ResponseWriter, request *http.Request) {
		stub.tokenRequests++
		stub.lastBasicUser, _, _ = request.BasicAuth()

		_ = request.ParseForm()
		stub.lastGrantType = request.PostFormValue("grant_type")

		token := fmt.Sprintf("token-%d", stub.tokenRequests)
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"access_token": token,
			"expires_in":   stub.tokenExpiresIn,
		})
	})

	stub.mux.HandleFunc("POST /v1/session/", func(writer http.ResponseWriter, request *http.Request) {
		stub.lastBearerToken = request.Header.Get("Authorization")
		writer.WriteHeader(stub.createStatus)
		_, _ = writer.Write([]byte(stub.createBody))
	})

	stub.mux.HandleFunc("GET /v1/session/", func(writer http.ResponseWriter, request *http.Request) {
		stub.lastBearerToken = request.Header.Get("Authorization")
		writer.WriteHeader(stub.statusStatus)
		_, _ = writer.Write([]byte(stub.statusBody))
	})

	return stub
}

func (stub *verificationStub) client(t *testing.T) (*kyc.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(stub.mux)
	t.Cleanup(server.Close)
	return kyc.NewClient(server.URL, server.URL, "client-id", "client-secret", kyc.NewCredential()), server
}

/*
TestClient_CreateSession verifies the create call: client-credentials token
exchange, bearer authentication, and response decoding.
*/
func TestClient_CreateSession(t *testing.T) {
	stub := newVerificationStub()
	client, _ := stub.client(t)

	created, err := client.CreateSession(context.Background(), kyc.CreateSessionInput{
		Callback:    "https://api.example/api/kyc/callback",
		VendorData:  "u-123",
		Features:    "OCR + FACE",
		RedirectURL: "https://app.example/welcome",
	})
	require.NoError(t, err)

	assert.Equal(t, "kyc-1", created.SessionID)
	assert.Equal(t, "https://verify.example/flow/kyc-1", created.VerificationURL)

	// Token exchange shape.
	assert.Equal(t, "client-id", stub.lastBasicUser)
	assert.Equal(t, "client_credentials", stub.lastGrantType)
	assert.Equal(t, "Bearer token-1", stub.lastBearerToken)
}

/*
TestClient_CreateSession_UpstreamError verifies a non-created answer surfaces
as an UpstreamError carrying the exact upstream status and body.
*/
func TestClient_CreateSession_UpstreamError(t *testing.T) {
	stub := newVerificationStub()
	stub.createStatus = http.StatusBadRequest
	stub.createBody = `{"detail":"features not enabled"}`
	client, _ := stub.client(t)

	_, err := client.CreateSession(context.Background(), kyc.CreateSessionInput{})
	require.Error(t, err)

	var upstream *kyc.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadRequest, upstream.StatusCode)
	assert.JSONEq(t, `{"detail":"features not enabled"}`, string(upstream.Body))
}

/*
TestClient_SessionStatus verifies the status fetch and its error path.
*/
func TestClient_SessionStatus(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		stub := newVerificationStub()
		client, _ := stub.client(t)

		status, err := client.SessionStatus(context.Background(), "kyc-1")
		require.NoError(t, err)
		assert.Equal(t, "kyc-1", status.SessionID)
		assert.Equal(t, identity.StatusApproved, status.Status)
	})

	t.Run("not_found", func(t *testing.T) {
		stub := newVerificationStub()
		stub.statusStatus = http.StatusNotFound
		stub.statusBody = `{"detail":"no such session"}`
		client, _ := stub.client(t)

		_, err := client.SessionStatus(context.Background(), "missing")
		var upstream *kyc.UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
	})
}

/*
TestClient_TokenCache verifies the bearer credential cache: a long-lived
token is exchanged once and reused, while a token inside the expiry margin
is discarded and re-exchanged.
*/
func TestClient_TokenCache(t *testing.T) {
	t.Run("reused_while_fresh", func(t *testing.T) {
		stub := newVerificationStub()
		stub.tokenExpiresIn = 3600
		client, _ := stub.client(t)

		_, err := client.SessionStatus(context.Background(), "kyc-1")
		require.NoError(t, err)
		_, err = client.SessionStatus(context.Background(), "kyc-1")
		require.NoError(t, err)

		assert.Equal(t, 1, stub.tokenRequests)
		assert.Equal(t, "Bearer token-1", stub.lastBearerToken)
	})

	t.Run("refreshed_inside_margin", func(t *testing.T) {
		stub := newVerificationStub()
		// 60s lifetime is entirely inside the 5 minute safety margin, so the
		// cached token is already considered dead on the next call.
		stub.tokenExpiresIn = 60
		client, _ := stub.client(t)

		_, err := client.SessionStatus(context.Background(), "kyc-1")
		require.NoError(t, err)
		_, err = client.SessionStatus(context.Background(), "kyc-1")
		require.NoError(t, err)

		assert.Equal(t, 2, stub.tokenRequests)
		assert.Equal(t, "Bearer token-2", stub.lastBearerToken)
	})
}

/*
TestClient_TokenExchangeFailure verifies that an unreachable token endpoint
fails the call outright instead of proceeding unauthenticated.
*/
func TestClient_TokenExchangeFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v2/token", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := kyc.NewClient(server.URL, server.URL, "client-id", "bad-secret", kyc.NewCredential())

	_, err := client.SessionStatus(context.Background(), "kyc-1")
	require.Error(t, err)

	var upstream *kyc.UpstreamError
	assert.False(t, errors.As(err, &upstream), "token failures are not upstream session errors")
}
