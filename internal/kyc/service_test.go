// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

package kyc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionverse/identity-api/internal/identity"
	"github.com/visionverse/identity-api/internal/kyc"
	"github.com/visionverse/identity-api/internal/platform/apperr"
	"github.com/visionverse/identity-api/internal/platform/config"
	"github.com/visionverse/identity-api/internal/session"
)

// # Fakes

// fakeAPI substitutes the verification service client in service tests.
type fakeAPI struct {
	createInput  kyc.CreateSessionInput
	createResult *kyc.VerificationSession
	createErr    error

	statusCalls  []string
	statusResult *kyc.SessionStatus
	statusErr    error
}

func (api *fakeAPI) CreateSession(ctx context.Context, input kyc.CreateSessionInput) (*kyc.VerificationSession, error) {
	api.createInput = input
	return api.createResult, api.createErr
}

func (api *fakeAPI) SessionStatus(ctx context.Context, sessionID string) (*kyc.SessionStatus, error) {
	api.statusCalls = append(api.statusCalls, sessionID)
	return api.statusResult, api.statusErr
}

// memoryStore is an in-memory Store for tests.
type memoryStore struct {
	seen     map[string]bool
	links    map[string]string
	statuses map[string]identity.Status
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		seen:     map[string]bool{},
		links:    map[string]string{},
		statuses: map[string]identity.Status{},
	}
}

func (store *memoryStore) MarkWebhook(ctx context.Context, sessionID string, status identity.Status) (bool, error) {
	key := sessionID + ":" + string(status)
	if store.seen[key] {
		return false, nil
	}
	store.seen[key] = true
	return true, nil
}

func (store *memoryStore) SaveLink(ctx context.Context, userID, sessionID string) error {
	store.links[userID] = sessionID
	return nil
}

func (store *memoryStore) Link(ctx context.Context, userID string) (string, error) {
	return store.links[userID], nil
}

func (store *memoryStore) SaveStatus(ctx context.Context, sessionID string, status identity.Status) error {
	store.statuses[sessionID] = status
	return nil
}

func (store *memoryStore) LastStatus(ctx context.Context, sessionID string) (identity.Status, error) {
	return store.statuses[sessionID], nil
}

func testConfig() *config.Config {
	return &config.Config{
		FrontendURL: "https://app.example",
		BackendURL:  "https://api.example",
		KYCFeatures: "OCR + FACE",
	}
}

func authenticatedSession() *session.Session {
	return &session.Session{
		User: &identity.UserIdentity{
			ID:          "u-123",
			Provider:    identity.ProviderGoogle,
			Email:       "dev@visionverse.app",
			DisplayName: "Dev",
		},
		IssuedAt: time.Now(),
	}
}

// # Tests

/*
TestService_Initiate verifies verification session creation: request shape,
session mutation, and the recovery link.
*/
func TestService_Initiate(t *testing.T) {
	api := &fakeAPI{
		createResult: &kyc.VerificationSession{
			SessionID:       "kyc-1",
			VerificationURL: "https://verify.example/flow/kyc-1",
		},
	}
	store := newMemoryStore()
	service := kyc.NewService(api, store, testConfig())

	sess := authenticatedSession()
	result, err := service.Initiate(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, "kyc-1", result.SessionID)
	assert.Equal(t, "https://verify.example/flow/kyc-1", result.VerificationURL)

	// Request carried the server callback, browser redirect, and user id.
	assert.Equal(t, "https://api.example/api/kyc/callback", api.createInput.Callback)
	assert.Equal(t, "https://app.example/welcome", api.createInput.RedirectURL)
	assert.Equal(t, "u-123", api.createInput.VendorData)
	assert.Equal(t, "OCR + FACE", api.createInput.Features)

	// Session and recovery link updated.
	assert.Equal(t, "kyc-1", sess.KYCSessionID)
	assert.Equal(t, "kyc-1", store.links["u-123"])
}

/*
TestService_Initiate_Unauthenticated verifies that anonymous sessions can not
start verification.
*/
func TestService_Initiate_Unauthenticated(t *testing.T) {
	service := kyc.NewService(&fakeAPI{}, newMemoryStore(), testConfig())

	_, err := service.Initiate(context.Background(), &session.Session{IssuedAt: time.Now()})
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, 401, ae.HTTPStatus)
	assert.Equal(t, "User not authenticated", ae.Message)
}

/*
TestService_Status covers the three status sources: no verification session,
a linked live session, and link recovery after a lost cookie.
*/
func TestService_Status(t *testing.T) {
	t.Run("no_session_defaults_pending", func(t *testing.T) {
		service := kyc.NewService(&fakeAPI{}, newMemoryStore(), testConfig())

		sess := authenticatedSession()
		result, err := service.Status(context.Background(), sess)
		require.NoError(t, err)

		assert.Equal(t, identity.StatusPending, result.Status)
		assert.False(t, result.Verified)
		assert.Empty(t, result.SessionID)
	})

	t.Run("live_fetch", func(t *testing.T) {
		api := &fakeAPI{statusResult: &kyc.SessionStatus{SessionID: "kyc-1", Status: identity.StatusApproved}}
		store := newMemoryStore()
		service := kyc.NewService(api, store, testConfig())

		sess := authenticatedSession()
		sess.KYCSessionID = "kyc-1"

		result, err := service.Status(context.Background(), sess)
		require.NoError(t, err)

		assert.Equal(t, identity.StatusApproved, result.Status)
		assert.True(t, result.Verified)
		assert.Equal(t, "kyc-1", result.SessionID)

		// Session user reflects the live status, and the cache recorded it.
		assert.Equal(t, identity.StatusApproved, sess.User.KYCStatus)
		assert.Equal(t, identity.StatusApproved, store.statuses["kyc-1"])
	})

	t.Run("link_recovery", func(t *testing.T) {
		api := &fakeAPI{statusResult: &kyc.SessionStatus{SessionID: "kyc-1", Status: identity.StatusInReview}}
		store := newMemoryStore()
		store.links["u-123"] = "kyc-1"
		service := kyc.NewService(api, store, testConfig())

		// Fresh cookie, same user: the session lost its verification link.
		sess := authenticatedSession()

		result, err := service.Status(context.Background(), sess)
		require.NoError(t, err)

		assert.Equal(t, "kyc-1", sess.KYCSessionID)
		assert.Equal(t, identity.StatusInReview, result.Status)
		assert.False(t, result.Verified)
		assert.Equal(t, []string{"kyc-1"}, api.statusCalls)
	})

	t.Run("cached_fallback_when_live_fetch_fails", func(t *testing.T) {
		api := &fakeAPI{statusErr: errors.New("verification service unreachable")}
		store := newMemoryStore()
		store.statuses["kyc-1"] = identity.StatusInReview
		service := kyc.NewService(api, store, testConfig())

		sess := authenticatedSession()
		sess.KYCSessionID = "kyc-1"

		result, err := service.Status(context.Background(), sess)
		require.NoError(t, err)

		// The cache holds only service-originated values, so serving it
		// stale is safe — and it never fabricates APPROVED.
		assert.Equal(t, identity.StatusInReview, result.Status)
		assert.False(t, result.Verified)
		assert.Equal(t, identity.StatusInReview, sess.User.KYCStatus)
	})

	t.Run("live_fetch_failure_without_cache", func(t *testing.T) {
		api := &fakeAPI{statusErr: errors.New("verification service unreachable")}
		service := kyc.NewService(api, newMemoryStore(), testConfig())

		sess := authenticatedSession()
		sess.KYCSessionID = "kyc-1"

		_, err := service.Status(context.Background(), sess)
		assert.Error(t, err)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		service := kyc.NewService(&fakeAPI{}, newMemoryStore(), testConfig())

		_, err := service.Status(context.Background(), &session.Session{IssuedAt: time.Now()})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, 401, ae.HTTPStatus)
	})
}

/*
TestService_Apply verifies webhook application: the authoritative status is
re-fetched, cached, and replays are flagged.
*/
func TestService_Apply(t *testing.T) {
	api := &fakeAPI{statusResult: &kyc.SessionStatus{SessionID: "kyc-1", Status: identity.StatusApproved}}
	store := newMemoryStore()
	service := kyc.NewService(api, store, testConfig())

	live, first, err := service.Apply(context.Background(), "kyc-1")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, identity.StatusApproved, live.Status)
	assert.Equal(t, identity.StatusApproved, store.statuses["kyc-1"])

	// Replay of the same (session, status) pair is not first.
	_, first, err = service.Apply(context.Background(), "kyc-1")
	require.NoError(t, err)
	assert.False(t, first)

	// A different status for the same session is a new event.
	api.statusResult = &kyc.SessionStatus{SessionID: "kyc-1", Status: identity.StatusDeclined}
	_, first, err = service.Apply(context.Background(), "kyc-1")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, identity.StatusDeclined, store.statuses["kyc-1"])
}
