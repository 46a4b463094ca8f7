// Package config loads the server configuration from the environment.
//
// A .env file in the working directory is loaded first if present (best
// effort, via godotenv), then every setting is read from os.Getenv with a
// default. Real environment variables win over .env entries.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	minSecretLength = 16
)

// Config holds every setting the server needs.
type Config struct {
	Port     int
	LogLevel slog.Level

	TemplateDir string
	StaticDir   string

	DBDriver    string // "sqlite" or "postgres"
	DBPath      string // sqlite file, or ":memory:"
	DatabaseURL string // postgres DSN
	AutoMigrate bool

	JWTSecret     string
	SessionTTL    time.Duration
	SecureCookies bool
	BaseURL       string // public URL, used to build provider callback URLs

	GitHubClientID     string
	GitHubClientSecret string

	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string

	DefaultProvider string
}

// Load reads .env (if any) and the environment, then validates the result.
func Load() (Config, error) {
	// this is best-effort: if no .env exists, continue with the real env
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv reads the settings without validating them. It only fails when a
// value cannot be parsed.
func FromEnv() (Config, error) {
	cfg := Config{
		TemplateDir:        getenv("TEMPLATE_DIR", "web/templates"),
		StaticDir:          getenv("STATIC_DIR", "web/static"),
		DBDriver:           strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
		DBPath:             getenv("DB_PATH", "data/profilesync.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		OIDCIssuer:         os.Getenv("OIDC_ISSUER"),
		OIDCClientID:       os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret:   os.Getenv("OIDC_CLIENT_SECRET"),
		DefaultProvider:    os.Getenv("DEFAULT_PROVIDER"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getenv("PORT", "8080")); err != nil {
		return Config{}, fmt.Errorf("config: invalid PORT: %w", err)
	}
	if err = cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "debug"))); err != nil {
		return Config{}, fmt.Errorf("config: invalid LOG_LEVEL: %w", err)
	}
	if cfg.AutoMigrate, err = strconv.ParseBool(getenv("DB_AUTO_MIGRATE", "true")); err != nil {
		return Config{}, fmt.Errorf("config: invalid DB_AUTO_MIGRATE: %w", err)
	}
	if cfg.SecureCookies, err = strconv.ParseBool(getenv("SECURE_COOKIES", "false")); err != nil {
		return Config{}, fmt.Errorf("config: invalid SECURE_COOKIES: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(getenv("SESSION_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("config: invalid SESSION_TTL: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(getenv("BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port)), "/")

	if cfg.DefaultProvider == "" {
		if cfg.GitHubEnabled() || !cfg.OIDCEnabled() {
			cfg.DefaultProvider = "github"
		} else {
			cfg.DefaultProvider = "oidc"
		}
	}

	return cfg, nil
}

// Validate reports the first problem with cfg.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return errors.New("config: DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q (want %s or %s)", c.DBDriver, DriverSQLite, DriverPostgres)
	}

	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}

	if !c.GitHubEnabled() && !c.OIDCEnabled() {
		return errors.New("config: no identity provider configured (set GITHUB_CLIENT_ID/SECRET or OIDC_ISSUER/CLIENT_ID)")
	}
	switch c.DefaultProvider {
	case "github":
		if !c.GitHubEnabled() {
			return errors.New("config: DEFAULT_PROVIDER is github but GitHub is not configured")
		}
	case "oidc":
		if !c.OIDCEnabled() {
			return errors.New("config: DEFAULT_PROVIDER is oidc but OIDC is not configured")
		}
	default:
		return fmt.Errorf("config: unknown DEFAULT_PROVIDER %q", c.DefaultProvider)
	}

	return nil
}

// GitHubEnabled reports whether GitHub OAuth credentials are set.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// OIDCEnabled reports whether an OIDC issuer and client are set.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// CallbackURL is the redirect URL registered with provider.
// Example: "http://localhost:8080/sign-in/github/callback"
func (c Config) CallbackURL(provider string) string {
	return c.BaseURL + "/sign-in/" + provider + "/callback"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
