// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"TBC_DB_PATH" envDefault:"./data/tbc.db"`
	SessionSecret string `env:"TBC_SESSION_SECRET,required"`
	ServerHost    string `env:"TBC_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"TBC_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"TBC_ENV" envDefault:"development"`
	LogLevel      string `env:"TBC_LOG_LEVEL" envDefault:"info"`
	UploadsDir    string `env:"TBC_UPLOADS_DIR" envDefault:"./uploads"`
	PublicBaseURL string `env:"TBC_PUBLIC_BASE_URL"` // Prefix for upload URLs, e.g. https://cdn.example.com

	// Admin accounts. Users whose email appears here are granted the admin
	// role at seed time; everyone else authenticates as a regular editor.
	AdminEmails    []string `env:"TBC_ADMIN_EMAILS" envSeparator:","`
	AdminPassword  string   `env:"TBC_ADMIN_PASSWORD"` // Initial password for seeded admin accounts
	DefaultAuthor  string   `env:"TBC_DEFAULT_AUTHOR" envDefault:"Admin"`
	FeaturedLimit  int      `env:"TBC_FEATURED_LIMIT" envDefault:"3"`
	EventRetention int      `env:"TBC_EVENT_RETENTION_DAYS" envDefault:"90"` // Audit event retention in days

	// Cache configuration
	RedisURL    string `env:"TBC_REDIS_URL"`                       // Optional Redis URL for distributed caching
	CachePrefix string `env:"TBC_CACHE_PREFIX" envDefault:"tbc:"`  // Redis key prefix
	CacheTTL    int    `env:"TBC_CACHE_TTL" envDefault:"300"`      // Article list cache TTL in seconds
	CacheSize   int    `env:"TBC_CACHE_MAX_SIZE" envDefault:"256"` // Max memory cache entries

	// CORS configuration for the JSON API
	AllowedOrigins []string `env:"TBC_ALLOWED_ORIGINS" envSeparator:","`

	// Seeding configuration
	DoSeed bool `env:"TBC_DO_SEED" envDefault:"false"` // Enable demo article seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// IsAdminEmail reports whether the given email is in the configured admin set.
func (c Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("TBC_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("TBC_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("TBC_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
