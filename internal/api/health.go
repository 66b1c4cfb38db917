// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

// Package api contains the health check handlers for liveness and readiness probes.
package api

import (
	"log/slog"
	"net/http"

	"github.com/visionverse/identity-api/internal/platform/constants"
	"github.com/visionverse/identity-api/internal/platform/respond"
)

// HealthDependencies holds the injectable dependency checkers for the health endpoints.
type HealthDependencies struct {
	// Environment labels the deployment (development, production).
	Environment string

	// CheckCache pings the Redis client.
	CheckCache func() error

	// Providers lists the identity providers registered at startup.
	Providers func() []string
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	var providers []string
	if handler.dependencies.Providers != nil {
		providers = handler.dependencies.Providers()
	}

	redisUp := true
	if handler.dependencies.CheckCache != nil {
		redisUp = handler.dependencies.CheckCache() == nil
	}

	respond.OK(writer, map[string]any{
		constants.FieldStatus:  "ok",
		"env":                  handler.dependencies.Environment,
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
		"providers":            providers,
		"redis":                redisUp,
	})
}

// readiness handles GET /ready (Readiness probe).
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	type checkResult struct {
		Name  string `json:"name"`
		IsOK  bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	results := make([]checkResult, 0, 1)
	isSystemReady := true

	// Check Redis
	if handler.dependencies.CheckCache != nil {
		result := checkResult{Name: "redis", IsOK: true}
		if err := handler.dependencies.CheckCache(); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isSystemReady = false
			handler.logger.Error("readiness_check_failed", slog.String("dependency", "redis"), slog.Any("error", err))
		}
		results = append(results, result)
	}

	responseStatus := "ready"

	if !isSystemReady {
		responseStatus = "degraded"
		// We use writeHeader manually because respond.OK always sends 200
		writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		writer.WriteHeader(http.StatusServiceUnavailable)
	}

	respond.OK(writer, map[string]any{
		"status": responseStatus,
		"checks": results,
	})
}
