// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/saas-starter/internal/platform/config"
	"github.com/taibuivan/saas-starter/internal/platform/constants"
	"github.com/taibuivan/saas-starter/internal/platform/metrics"
	"github.com/taibuivan/saas-starter/internal/platform/middleware"
	"github.com/taibuivan/saas-starter/internal/users/account"
	"github.com/taibuivan/saas-starter/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler: always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler: 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles the credential and session routes.
	Auth *auth.Handler

	// Users handles role-gated account administration.
	Users *account.Handler
}

// Security bundles what the identity middleware needs.
type Security struct {
	Verifier middleware.TokenVerifier
	Resolver middleware.IdentityResolver
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups. ctx bounds background work such as the
// rate limiter's sweeper.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, security Security, collectors *metrics.Metrics, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.PanicRecovery)
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.NewIPRateLimiter(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst).Handler)
	r.Use(collectors.Instrument)
	r.Use(middleware.Authenticate(security.Verifier, security.Resolver))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated probes for container orchestration and scraping.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Handle("/metrics", collectors.Handler())

	// # Application API
	r.Route("/api", func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes())
		api.Mount("/users", h.Users.Routes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
