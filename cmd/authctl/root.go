// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/taibuivan/saas-starter/internal/platform/config"
	"github.com/taibuivan/saas-starter/internal/platform/constants"
	"github.com/taibuivan/saas-starter/internal/platform/mailer"
	pgstore "github.com/taibuivan/saas-starter/internal/platform/postgres"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
	"github.com/taibuivan/saas-starter/internal/users/auth"
)

// Global flags available to all subcommands.
var verbose bool

// NewRootCmd creates the root command for the authctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authctl",
		Short: "Operate the SaaS Starter authentication API",
		Long: `authctl applies database migrations, purges expired sessions and
seeds administrator accounts. It reads the same environment (and .env file)
as the API server.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSessionsCmd())
	cmd.AddCommand(NewAdminCmd())

	return cmd
}

// newLogger writes structured logs to stderr so command output stays clean.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String(constants.FieldApp, "authctl"))
}

// environment loads configuration and a logger for a command run.
func environment() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(), nil
}

// openAuthService connects to PostgreSQL and builds the auth service used by
// the session and admin commands. Emails are never sent from the CLI.
func openAuthService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*auth.Service, *pgxpool.Pool, error) {
	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	tokens, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
		Issuer:        constants.AuthIssuer,
	})
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("initialize token service: %w", err)
	}

	service := auth.NewService(
		auth.NewAccountRepository(pool),
		auth.NewSessionRepository(pool),
		sec.NewBcryptHasher(cfg.PasswordHashCost),
		tokens,
		mailer.NewDisabledNotifier(logger),
		logger,
		auth.WithClientURL(cfg.ClientURL),
	)

	return service, pool, nil
}
