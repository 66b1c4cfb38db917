// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

// Package facebook implements the Facebook OAuth2 provider adapter.
//
// Facebook issues plain OAuth2 access tokens rather than ID tokens, so the
// profile is fetched from the Graph API with the exchanged token.
package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/visionverse/identity-api/internal/auth/provider"
	"github.com/visionverse/identity-api/internal/identity"
)

const (
	graphProfileURL = "https://graph.facebook.com/v19.0/me"
	graphTimeout    = 10 * time.Second
)

// profileFields mirrors the field set the frontend relies on.
const profileFields = "id,name,email,first_name,last_name,picture"

// Adapter implements [provider.Adapter] for Facebook.
type Adapter struct {
	oauthConfig *oauth2.Config

	// profileURL is overridden in tests to point at a fake Graph API.
	profileURL string
	httpClient *http.Client
}

// New builds the adapter from app credentials.
func New(clientID, clientSecret, redirectURL string) (*Adapter, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("facebook: oauth config missing required fields")
	}

	return &Adapter{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     facebook.Endpoint,
			Scopes:       []string{"email", "public_profile"},
		},
		profileURL: graphProfileURL,
		httpClient: &http.Client{Timeout: graphTimeout},
	}, nil
}

// Name returns the provider identifier used by the registry.
func (a *Adapter) Name() identity.Provider {
	return identity.ProviderFacebook
}

// AuthCodeURL builds the Facebook authorization URL for the signed state.
func (a *Adapter) AuthCodeURL(state string) (string, error) {
	return a.oauthConfig.AuthCodeURL(state), nil
}

// HandleCallback exchanges the authorization code and fetches the profile
// from the Graph API.
func (a *Adapter) HandleCallback(ctx context.Context, input provider.CallbackInput) (*identity.UserIdentity, error) {
	if input.Code == "" {
		return nil, errors.New("facebook: callback missing authorization code")
	}

	token, err := a.oauthConfig.Exchange(ctx, input.Code)
	if err != nil {
		return nil, fmt.Errorf("facebook: token exchange failed: %w", err)
	}

	profile, err := a.fetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	if profile.ID == "" {
		return nil, errors.New("facebook: profile missing id")
	}

	displayName := profile.Name
	if displayName == "" {
		displayName = profile.Email
	}

	return &identity.UserIdentity{
		ID:          profile.ID,
		Provider:    identity.ProviderFacebook,
		Email:       profile.Email,
		DisplayName: displayName,
		GivenName:   profile.FirstName,
		FamilyName:  profile.LastName,
		PhotoURL:    profile.Picture.Data.URL,
	}, nil
}

type graphProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (a *Adapter) fetchProfile(ctx context.Context, accessToken string) (*graphProfile, error) {
	query := url.Values{}
	query.Set("fields", profileFields)
	query.Set("access_token", accessToken)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, a.profileURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("facebook: build profile request: %w", err)
	}

	response, err := a.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("facebook: profile fetch failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook: profile fetch returned status %d", response.StatusCode)
	}

	profile := &graphProfile{}
	if err := json.NewDecoder(response.Body).Decode(profile); err != nil {
		return nil, fmt.Errorf("facebook: profile decode failed: %w", err)
	}
	return profile, nil
}
