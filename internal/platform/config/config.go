// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (providers, KYC client) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the VisionVerse identity API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Origins. All callback and redirect URLs are derived from these,
	// never hardcoded per deployment.
	FrontendURL string `env:"FRONTEND_URL,required"`
	BackendURL  string `env:"BACKEND_URL,required"`

	// ExtraOrigins is a comma-separated list of additional allowed CORS origins.
	ExtraOrigins string `env:"EXTRA_ORIGINS"`

	// Key-Value store (Redis) for webhook idempotency and verification links
	RedisURL string `env:"REDIS_URL,required"`

	// SessionSecret keys the sealed session cookie and the signed OAuth state.
	SessionSecret string `env:"SESSION_SECRET,required"`

	// Identity providers. A provider with empty credentials is simply not
	// registered; the server still boots with the remaining ones.
	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"FACEBOOK_CLIENT_SECRET"`
	AppleClientID        string `env:"APPLE_CLIENT_ID"`

	// External KYC verification service
	KYCBaseURL       string `env:"KYC_BASE_URL"       envDefault:"https://verification.didit.me"`
	KYCAuthURL       string `env:"KYC_AUTH_URL"       envDefault:"https://apx.didit.me"`
	KYCClientID      string `env:"KYC_CLIENT_ID"`
	KYCClientSecret  string `env:"KYC_CLIENT_SECRET"`
	KYCWebhookSecret string `env:"KYC_WEBHOOK_SECRET,required"`
	KYCFeatures      string `env:"KYC_FEATURES"       envDefault:"OCR + FACE"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	// Trailing slashes break derived URL concatenation downstream.
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.KYCBaseURL = strings.TrimRight(cfg.KYCBaseURL, "/")
	cfg.KYCAuthURL = strings.TrimRight(cfg.KYCAuthURL, "/")

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the full CORS allowlist: the configured frontend
// plus any extra origins.
func (c *Config) AllowedOrigins() []string {
	origins := []string{c.FrontendURL}
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		origin = strings.TrimSpace(strings.TrimRight(origin, "/"))
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// LoginURL is the browser-facing login page used as the failure redirect target.
func (c *Config) LoginURL() string {
	return c.FrontendURL + "/login"
}

// WelcomeURL is the default post-login landing page.
func (c *Config) WelcomeURL() string {
	return c.FrontendURL + "/welcome"
}
