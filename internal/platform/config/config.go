// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local '.env' file
is honoured in development through 'joho/godotenv'; variables already present
in the process environment always win.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Mailer) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// # Configuration Schema

// Config holds all runtime configuration for the API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that overwrites those headers.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// ClientURL is the SPA origin used to build links in outgoing emails.
	ClientURL string `env:"CLIENT_URL" envDefault:"http://localhost:5173"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Token signing. Access and refresh tokens use distinct secrets.
	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET,required,notEmpty"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET,required,notEmpty"`
	JWTAccessTTL     time.Duration `env:"JWT_ACCESS_TTL"  envDefault:"15m"`
	JWTRefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`

	// Password hashing
	PasswordHashCost int `env:"PASSWORD_HASH_COST" envDefault:"12"`

	// RevokeSessionsOnReset drops every refresh session after a password reset.
	RevokeSessionsOnReset bool `env:"AUTH_REVOKE_SESSIONS_ON_RESET" envDefault:"true"`

	// Throttle for credential endpoints (login, forgot-password), per client IP.
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT"  envDefault:"10"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`

	// Outgoing email
	Email EmailConfig

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// EmailConfig selects and configures the email notifier.
type EmailConfig struct {
	// Mode forces a notifier: smtp, queue, console or disabled. Empty means auto.
	Mode string `env:"EMAIL_MODE"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASS"`
	From         string `env:"FROM_EMAIL" envDefault:"noreply@saas-starter.com"`

	// RabbitMQ transport for the queue notifier.
	AMQPURL string `env:"AMQP_URL"`
	Queue   string `env:"EMAIL_QUEUE" envDefault:"email.outbound"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// A missing .env file is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env file: %w", err)
	}

	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	if c.PasswordHashCost < bcrypt.MinCost || c.PasswordHashCost > bcrypt.MaxCost {
		return fmt.Errorf("config: PASSWORD_HASH_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}

	return nil
}

// AllowedOrigins returns the browser origins permitted by CORS: the client
// URL plus any comma-separated EXTRA_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	origins := []string{strings.TrimRight(c.ClientURL, "/")}
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, strings.TrimRight(origin, "/"))
		}
	}
	return origins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
