// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/visionverse/identity-api/internal/auth/provider"
	"github.com/visionverse/identity-api/internal/identity"
)

// newTestAdapter points the adapter at a fake token endpoint and Graph API.
func newTestAdapter(t *testing.T, graph http.HandlerFunc) *Adapter {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"access_token": "fb-token",
			"token_type":   "Bearer",
		})
	})
	mux.HandleFunc("/me", graph)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	adapter, err := New("app-id", "app-secret", "https://api.example/api/auth/facebook/callback")
	require.NoError(t, err)

	adapter.oauthConfig.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token"}
	adapter.profileURL = server.URL + "/me"
	adapter.httpClient = server.Client()
	return adapter
}

/*
TestNew_RequiresCredentials verifies that partial configuration is rejected.
*/
func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New("", "secret", "https://api.example/cb")
	assert.Error(t, err)

	_, err = New("id", "", "https://api.example/cb")
	assert.Error(t, err)

	_, err = New("id", "secret", "")
	assert.Error(t, err)
}

/*
TestAdapter_AuthCodeURL verifies the authorization URL carries the state.
*/
func TestAdapter_AuthCodeURL(t *testing.T) {
	adapter, err := New("app-id", "app-secret", "https://api.example/cb")
	require.NoError(t, err)

	authURL, err := adapter.AuthCodeURL("signed-state")
	require.NoError(t, err)
	assert.Contains(t, authURL, "state=signed-state")
	assert.Contains(t, authURL, "client_id=app-id")
}

/*
TestAdapter_HandleCallback verifies code exchange plus Graph profile
normalization into the canonical identity.
*/
func TestAdapter_HandleCallback(t *testing.T) {
	adapter := newTestAdapter(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "fb-token", request.URL.Query().Get("access_token"))
		assert.Equal(t, profileFields, request.URL.Query().Get("fields"))

		_ = json.NewEncoder(writer).Encode(map[string]any{
			"id":         "fb-123",
			"name":       "Dev Example",
			"email":      "dev@visionverse.app",
			"first_name": "Dev",
			"last_name":  "Example",
			"picture":    map[string]any{"data": map[string]any{"url": "https://graph.example/pic"}},
		})
	})

	user, err := adapter.HandleCallback(context.Background(), provider.CallbackInput{Code: "auth-code"})
	require.NoError(t, err)

	assert.Equal(t, "fb-123", user.ID)
	assert.Equal(t, identity.ProviderFacebook, user.Provider)
	assert.Equal(t, "dev@visionverse.app", user.Email)
	assert.Equal(t, "Dev Example", user.DisplayName)
	assert.Equal(t, "Dev", user.GivenName)
	assert.Equal(t, "Example", user.FamilyName)
	assert.Equal(t, "https://graph.example/pic", user.PhotoURL)
}

/*
TestAdapter_HandleCallback_Failures verifies the rejection paths.
*/
func TestAdapter_HandleCallback_Failures(t *testing.T) {
	t.Run("missing_code", func(t *testing.T) {
		adapter, err := New("app-id", "app-secret", "https://api.example/cb")
		require.NoError(t, err)

		_, err = adapter.HandleCallback(context.Background(), provider.CallbackInput{})
		assert.Error(t, err)
	})

	t.Run("profile_without_id", func(t *testing.T) {
		adapter := newTestAdapter(t, func(writer http.ResponseWriter, request *http.Request) {
			_ = json.NewEncoder(writer).Encode(map[string]any{"name": "No ID"})
		})

		_, err := adapter.HandleCallback(context.Background(), provider.CallbackInput{Code: "auth-code"})
		assert.Error(t, err)
	})

	t.Run("graph_error", func(t *testing.T) {
		adapter := newTestAdapter(t, func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusBadRequest)
		})

		_, err := adapter.HandleCallback(context.Background(), provider.CallbackInput{Code: "auth-code"})
		assert.Error(t, err)
	})
}
