// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

// Command api is the entry point for the VisionVerse identity HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to Redis.
//  4. Build the session manager and OAuth state signer.
//  5. Register identity providers (skipping any without credentials).
//  6. Wire the verification client, store, and webhook trust gate.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/visionverse/identity-api/internal/api"
	"github.com/visionverse/identity-api/internal/auth"
	"github.com/visionverse/identity-api/internal/auth/provider"
	"github.com/visionverse/identity-api/internal/auth/provider/apple"
	"github.com/visionverse/identity-api/internal/auth/provider/facebook"
	"github.com/visionverse/identity-api/internal/auth/provider/google"
	"github.com/visionverse/identity-api/internal/kyc"
	"github.com/visionverse/identity-api/internal/platform/config"
	"github.com/visionverse/identity-api/internal/platform/constants"
	redisstore "github.com/visionverse/identity-api/internal/platform/redis"
	"github.com/visionverse/identity-api/internal/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[VisionVerse] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 4. Sessions & State ───────────────────────────────────────────────
	sessions, err := session.NewManager(cfg.SessionSecret, cfg.IsProduction())
	must(log, err, "initialize session manager")

	signer := auth.NewStateSigner(cfg.SessionSecret)

	// ── 5. Identity Providers ─────────────────────────────────────────────
	// Providers without credentials are skipped, not fatal: a deployment may
	// legitimately enable only a subset.
	registry := provider.NewRegistry()

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		googleAdapter, err := google.New(startupCtx, cfg.GoogleClientID, cfg.GoogleClientSecret,
			cfg.BackendURL+"/api/auth/google/callback")
		must(log, err, "initialize google provider")
		registry.Register(googleAdapter)
	} else {
		log.Warn("provider_skipped", slog.String("provider", "google"), slog.String("reason", "missing credentials"))
	}

	if cfg.FacebookClientID != "" && cfg.FacebookClientSecret != "" {
		facebookAdapter, err := facebook.New(cfg.FacebookClientID, cfg.FacebookClientSecret,
			cfg.BackendURL+"/api/auth/facebook/callback")
		must(log, err, "initialize facebook provider")
		registry.Register(facebookAdapter)
	} else {
		log.Warn("provider_skipped", slog.String("provider", "facebook"), slog.String("reason", "missing credentials"))
	}

	if cfg.AppleClientID != "" {
		appleAdapter, err := apple.New(startupCtx, cfg.AppleClientID)
		must(log, err, "initialize apple provider")
		registry.Register(appleAdapter)
	} else {
		log.Warn("provider_skipped", slog.String("provider", "apple"), slog.String("reason", "missing credentials"))
	}

	log.Info("providers_registered", slog.Any("providers", registry.Names()))

	// ── 6. Verification Wiring ────────────────────────────────────────────
	credential := kyc.NewCredential()
	kycClient := kyc.NewClient(cfg.KYCBaseURL, cfg.KYCAuthURL, cfg.KYCClientID, cfg.KYCClientSecret, credential)
	kycStore := kyc.NewRedisStore(rdb)
	kycService := kyc.NewService(kycClient, kycStore, cfg)
	trustGate := kyc.NewTrustGate(cfg.KYCWebhookSecret)

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		Environment: cfg.Environment,
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
		Providers: registry.Names,
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	authHandler := auth.NewHandler(registry, sessions, signer, cfg)
	kycHandler := kyc.NewHandler(kycService, trustGate, sessions, cfg)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		KYC:       kycHandler,
	}

	server := api.NewServer(context.Background(), cfg, log, sessions, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
