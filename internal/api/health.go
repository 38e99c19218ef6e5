// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package api contains the health check handlers for liveness and readiness probes.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/saas-starter/internal/platform/constants"
	"github.com/taibuivan/saas-starter/internal/platform/respond"
)

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// CheckDatabase pings the PostgreSQL pool.
	CheckDatabase func(ctx context.Context) error

	// CheckCache pings the Redis client.
	CheckCache func(ctx context.Context) error
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
	})
}

// readiness handles GET /ready (Readiness probe).
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	results := []checkResult{
		handler.check(ctx, "postgres", handler.dependencies.CheckDatabase),
		handler.check(ctx, "redis", handler.dependencies.CheckCache),
	}

	responseStatus := "ready"
	httpStatus := http.StatusOK
	for _, result := range results {
		if !result.IsOK {
			responseStatus = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{Data: map[string]any{
		constants.FieldStatus: responseStatus,
		constants.FieldChecks: results,
	}})
}

func (handler *healthHandler) check(ctx context.Context, name string, probe func(context.Context) error) checkResult {
	result := checkResult{Name: name, IsOK: true}
	if probe == nil {
		return result
	}

	if err := probe(ctx); err != nil {
		result.IsOK = false
		result.Error = err.Error()
		handler.logger.ErrorContext(ctx, "readiness_check_failed", slog.String("dependency", name), slog.Any("error", err))
	}
	return result
}
