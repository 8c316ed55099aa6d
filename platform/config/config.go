// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// FirebaseConfig provides settings for the Firebase Admin SDK
// (Firestore document store and Cloud Messaging delivery).
type FirebaseConfig interface {
	GetFirebaseProjectID() string
	GetFirebaseCredentialsFile() string
}

// StripeConfig provides settings for the payment-intent module.
type StripeConfig interface {
	GetStripeSecretKey() string
	IsPaymentsEnabled() bool
}

// WatcherConfig provides settings for the Firestore change watcher.
type WatcherConfig interface {
	IsWatcherEnabled() bool
}

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env                     string
	HTTPAddr                string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	FirebaseProjectID       string
	FirebaseCredentialsFile string
	StripeSecretKey         string
	PaymentsEnabled         bool
	WatcherEnabled          bool
	ShutdownTimeout         time.Duration
}

// Load reads configuration from the environment, applying .env files in
// development. It validates that settings required at startup are present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "*"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "true"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	stripeKey := getEnv("STRIPE_SECRET_KEY", "")
	paymentsEnabled := strings.EqualFold(getEnv("PAYMENTS_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		StripeSecretKey:         stripeKey,
		PaymentsEnabled:         paymentsEnabled && stripeKey != "",
		WatcherEnabled:          strings.EqualFold(getEnv("WATCHER_ENABLED", "true"), "true"),
		ShutdownTimeout:         mustDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")),
	}

	if cfg.FirebaseProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}
	if paymentsEnabled && stripeKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENTS_ENABLED is true")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func (c *Config) GetHTTPAddr() string                { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool              { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string           { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool            { return c.CORSAllowCreds }
func (c *Config) GetFirebaseProjectID() string       { return c.FirebaseProjectID }
func (c *Config) GetFirebaseCredentialsFile() string { return c.FirebaseCredentialsFile }
func (c *Config) GetStripeSecretKey() string         { return c.StripeSecretKey }
func (c *Config) IsPaymentsEnabled() bool            { return c.PaymentsEnabled }
func (c *Config) IsWatcherEnabled() bool             { return c.WatcherEnabled }

// Compile-time checks that Config satisfies every module-scoped interface.
var (
	_ HTTPConfig     = (*Config)(nil)
	_ FirebaseConfig = (*Config)(nil)
	_ StripeConfig   = (*Config)(nil)
	_ WatcherConfig  = (*Config)(nil)
)

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
