// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionverse/identity-api/internal/identity"
	"github.com/visionverse/identity-api/internal/platform/constants"
	"github.com/visionverse/identity-api/internal/session"
)

const testSecret = "unit-test-session-secret"

// saveToRequest seals sess with manager and returns a request carrying the
// resulting cookie, mirroring a browser round trip.
func saveToRequest(t *testing.T, manager *session.Manager, sess *session.Session) *http.Request {
	t.Helper()

	recorder := httptest.NewRecorder()
	require.NoError(t, manager.Save(recorder, sess))

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(cookies[0])
	return request
}

/*
TestManager_RoundTrip verifies that a saved session survives the cookie
round trip with all fields intact.
*/
func TestManager_RoundTrip(t *testing.T) {
	manager, err := session.NewManager(testSecret, false)
	require.NoError(t, err)

	original := &session.Session{
		User: &identity.UserIdentity{
			ID:          "u-123",
			Provider:    identity.ProviderGoogle,
			Email:       "dev@visionverse.app",
			DisplayName: "Dev",
			KYCStatus:   identity.StatusApproved,
		},
		ReturnTo:     "/dashboard",
		AuthNonce:    "nonce-1",
		KYCSessionID: "kyc-1",
		IssuedAt:     time.Now(),
	}

	loaded := manager.Load(saveToRequest(t, manager, original))

	assert.True(t, loaded.Authenticated())
	assert.Equal(t, "u-123", loaded.User.ID)
	assert.Equal(t, identity.ProviderGoogle, loaded.User.Provider)
	assert.Equal(t, identity.StatusApproved, loaded.User.KYCStatus)
	assert.Equal(t, "/dashboard", loaded.ReturnTo)
	assert.Equal(t, "nonce-1", loaded.AuthNonce)
	assert.Equal(t, "kyc-1", loaded.KYCSessionID)
}

/*
TestManager_Load_Degradation verifies that absent, tampered, or foreign
cookies all degrade to a fresh anonymous session rather than erroring.
*/
func TestManager_Load_Degradation(t *testing.T) {
	manager, err := session.NewManager(testSecret, false)
	require.NoError(t, err)

	authenticated := &session.Session{
		User:     &identity.UserIdentity{ID: "u-123", Provider: identity.ProviderGoogle},
		IssuedAt: time.Now(),
	}

	t.Run("no_cookie", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.False(t, manager.Load(request).Authenticated())
	})

	t.Run("garbage_cookie", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: "not-a-sealed-blob"})
		assert.False(t, manager.Load(request).Authenticated())
	})

	t.Run("tampered_cookie", func(t *testing.T) {
		request := saveToRequest(t, manager, authenticated)
		cookie, err := request.Cookie(constants.SessionCookieName)
		require.NoError(t, err)

		// Flip one character of the sealed blob.
		flipped := []byte(cookie.Value)
		if flipped[10] == 'A' {
			flipped[10] = 'B'
		} else {
			flipped[10] = 'A'
		}
		request = httptest.NewRequest(http.MethodGet, "/", nil)
		request.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: string(flipped)})

		assert.False(t, manager.Load(request).Authenticated())
	})

	t.Run("foreign_key", func(t *testing.T) {
		other, err := session.NewManager("a-different-secret", false)
		require.NoError(t, err)

		request := saveToRequest(t, other, authenticated)
		assert.False(t, manager.Load(request).Authenticated())
	})
}

/*
TestManager_Load_Expiry verifies that sessions past their lifetime degrade to
anonymous regardless of what the browser claims about cookie expiry.
*/
func TestManager_Load_Expiry(t *testing.T) {
	manager, err := session.NewManager(testSecret, false)
	require.NoError(t, err)

	tests := []struct {
		name          string
		issuedAt      time.Time
		authenticated bool
	}{
		{"fresh", time.Now(), true},
		{"almost_expired", time.Now().Add(-constants.SessionMaxAge + time.Minute), true},
		{"expired", time.Now().Add(-constants.SessionMaxAge - time.Minute), false},
		{"zero_issued_at", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &session.Session{
				User:     &identity.UserIdentity{ID: "u-123"},
				IssuedAt: tt.issuedAt,
			}
			loaded := manager.Load(saveToRequest(t, manager, sess))
			assert.Equal(t, tt.authenticated, loaded.Authenticated())
		})
	}
}

/*
TestManager_Clear verifies that clearing expires the cookie immediately.
*/
func TestManager_Clear(t *testing.T) {
	manager, err := session.NewManager(testSecret, false)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	manager.Clear(recorder)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, constants.SessionCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

/*
TestManager_CookieAttributes verifies the environment-dependent cookie flags.
*/
func TestManager_CookieAttributes(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		secure     bool
		sameSite   http.SameSite
	}{
		{"development", false, false, http.SameSiteLaxMode},
		{"production", true, true, http.SameSiteNoneMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := session.NewManager(testSecret, tt.production)
			require.NoError(t, err)

			recorder := httptest.NewRecorder()
			require.NoError(t, manager.Save(recorder, &session.Session{IssuedAt: time.Now()}))

			cookies := recorder.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, tt.secure, cookies[0].Secure)
			assert.Equal(t, tt.sameSite, cookies[0].SameSite)
			assert.True(t, cookies[0].HttpOnly)
			assert.Equal(t, int(constants.SessionMaxAge.Seconds()), cookies[0].MaxAge)
		})
	}
}

/*
TestSession_ConsumeReturnTo verifies exactly-once consumption of the pending
return path.
*/
func TestSession_ConsumeReturnTo(t *testing.T) {
	sess := &session.Session{ReturnTo: "/dashboard"}

	assert.Equal(t, "/dashboard", sess.ConsumeReturnTo())
	assert.Empty(t, sess.ConsumeReturnTo())
}

/*
TestManager_Middleware verifies that the middleware injects the request
session into the context.
*/
func TestManager_Middleware(t *testing.T) {
	manager, err := session.NewManager(testSecret, false)
	require.NoError(t, err)

	original := &session.Session{
		User:     &identity.UserIdentity{ID: "u-42", Provider: identity.ProviderFacebook},
		IssuedAt: time.Now(),
	}
	request := saveToRequest(t, manager, original)

	var seen *session.Session
	next := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = session.FromContext(request.Context())
	})

	manager.Middleware()(next).ServeHTTP(httptest.NewRecorder(), request)

	require.NotNil(t, seen)
	assert.True(t, seen.Authenticated())
	assert.Equal(t, "u-42", seen.User.ID)

	// Without the middleware the context yields an empty session, never nil.
	assert.False(t, session.FromContext(request.Context()).Authenticated())
}
