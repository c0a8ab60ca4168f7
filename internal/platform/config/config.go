// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct. In development an optional .env file is loaded first (godotenv);
real environment variables always win.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
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

	"github.com/taibuivan/backoffice/pkg/pagination"
)

// # Configuration Schema

// Config holds all runtime configuration for the back-office API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL   string `env:"DATABASE_URL,required"`
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis), holds the session denylist
	RedisURL string `env:"REDIS_URL,required"`

	// Session token signing
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`
	JWTIssuer      string `env:"JWT_ISSUER" envDefault:"backoffice.api"`

	// Session lifetimes
	SessionTTL        time.Duration `env:"SESSION_TTL"         envDefault:"1h"`
	RememberTTL       time.Duration `env:"REMEMBER_TTL"        envDefault:"720h"`
	RefreshTTL        time.Duration `env:"REFRESH_TTL"         envDefault:"1440h"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"access_token"`

	// Generic repository policy
	PaginationMinPerPage     int    `env:"PAGINATION_MIN_PER_PAGE"     envDefault:"1"`
	PaginationMaxPerPage     int    `env:"PAGINATION_MAX_PER_PAGE"     envDefault:"100"`
	PaginationDefaultPerPage int    `env:"PAGINATION_DEFAULT_PER_PAGE" envDefault:"15"`
	BulkIsolation            string `env:"BULK_ISOLATION"              envDefault:"isolate_expected"`

	// Abuse protection
	LoginRateLimit int `env:"LOGIN_RATE_LIMIT" envDefault:"10"`

	// Cross-Origin Resource Sharing
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:"backoffice.app"`
	ExtraOrigins        string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load reads an optional .env file, parses the environment and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces cross-field invariants that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Environment {
	case "development", "testing", "staging", "production":
	default:
		return fmt.Errorf("config: unknown ENVIRONMENT %q", c.Environment)
	}

	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.RememberTTL <= c.SessionTTL {
		return fmt.Errorf("config: REMEMBER_TTL (%s) must exceed SESSION_TTL (%s)", c.RememberTTL, c.SessionTTL)
	}
	if c.RefreshTTL < c.RememberTTL {
		return fmt.Errorf("config: REFRESH_TTL (%s) must not be shorter than REMEMBER_TTL (%s)", c.RefreshTTL, c.RememberTTL)
	}

	if c.PaginationMinPerPage < 1 ||
		c.PaginationMinPerPage > c.PaginationDefaultPerPage ||
		c.PaginationDefaultPerPage > c.PaginationMaxPerPage {
		return errors.New("config: pagination bounds must satisfy 1 <= min <= default <= max")
	}

	switch c.BulkIsolation {
	case "isolate_expected", "all_or_nothing":
	default:
		return fmt.Errorf("config: unknown BULK_ISOLATION %q", c.BulkIsolation)
	}

	return nil
}

// PaginationPolicy returns the configured page-size policy.
func (c *Config) PaginationPolicy() pagination.Policy {
	return pagination.Policy{
		MinPerPage:     c.PaginationMinPerPage,
		MaxPerPage:     c.PaginationMaxPerPage,
		DefaultPerPage: c.PaginationDefaultPerPage,
	}
}

// AllowedOrigins returns the explicit extra CORS origins.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
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

// IsProductionLike reports whether cookies must be Secure with SameSite=None.
func (c *Config) IsProductionLike() bool {
	return c.Environment == "production" || c.Environment == "staging"
}
