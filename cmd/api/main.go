// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the SaaS Starter HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Select the email notifier.
//  7. Wire HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/taibuivan/saas-starter/internal/api"
	"github.com/taibuivan/saas-starter/internal/platform/config"
	"github.com/taibuivan/saas-starter/internal/platform/constants"
	"github.com/taibuivan/saas-starter/internal/platform/mailer"
	"github.com/taibuivan/saas-starter/internal/platform/metrics"
	"github.com/taibuivan/saas-starter/internal/platform/middleware"
	"github.com/taibuivan/saas-starter/internal/platform/migration"
	pgstore "github.com/taibuivan/saas-starter/internal/platform/postgres"
	redisstore "github.com/taibuivan/saas-starter/internal/platform/redis"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
	"github.com/taibuivan/saas-starter/internal/users/account"
	"github.com/taibuivan/saas-starter/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
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

	// Lives until shutdown; stops background sweepers.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Metrics & Email ────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	notifier, closeNotifier, err := mailer.New(cfg.Email, cfg.IsDevelopment(), log)
	must(log, err, "initialize mailer")
	dispatcher := mailer.NewDispatcher(notifier, log, appMetrics)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
		Issuer:        constants.AuthIssuer,
	})
	must(log, err, "initialize token service")

	authService := auth.NewService(
		auth.NewAccountRepository(pool),
		auth.NewSessionRepository(pool),
		sec.NewBcryptHasher(cfg.PasswordHashCost),
		tokens,
		dispatcher,
		log,
		auth.WithClientURL(cfg.ClientURL),
		auth.WithRevokeSessionsOnReset(cfg.RevokeSessionsOnReset),
		auth.WithEventRecorder(appMetrics),
	)

	throttle := middleware.NewThrottle(middleware.NewRedisCounter(rdb), cfg.AuthRateLimit, cfg.AuthRateWindow)
	authHandler := auth.NewHandler(authService, auth.CookieConfig{
		Secure: cfg.IsProduction(),
		MaxAge: cfg.JWTRefreshTTL,
	}, throttle.Handler)

	accountService := account.NewService(account.NewRepository(pool), log)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		CheckCache:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(appCtx, cfg, log,
		api.Security{Verifier: tokens, Resolver: authService},
		appMetrics,
		api.Handlers{
			Liveness:  liveness,
			Readiness: readiness,
			Auth:      authHandler,
			Users:     account.NewHandler(accountService),
		},
	)

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
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
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	exitCode := 0
	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		exitCode = 1
	}

	// Emails queued by the last requests are delivered before the transport closes.
	dispatcher.Wait()
	if err := closeNotifier(); err != nil {
		log.Error("mailer_close_failed", slog.Any("error", err))
	}

	log.Info("server_stopped_cleanly")

	if exitCode != 0 {
		appCancel()
		os.Exit(exitCode)
	}
}

// newLogger builds the JSON root logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String(constants.FieldApp, constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
