// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/notifyctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mealbridge/notify/internal/notify"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production

	// Notification engine
	TimeZone             string // IANA zone the businesses operate in
	ReminderLeadMinutes  int
	TriggerWindowMinutes int
	ProximityRadiusKm    float64
	PollIntervalMinutes  int
	RolloverCutoffHour   int

	// Push delivery
	FCMCredentialsFile string

	// Approval emails
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	pollInterval := envInt("POLL_INTERVAL_MINUTES", 15)

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),

		TimeZone:            envOr("TIME_ZONE", "Asia/Kuala_Lumpur"),
		ReminderLeadMinutes: envInt("REMINDER_LEAD_MINUTES", 60),
		// Twice the poll interval by default, tolerating scheduler jitter.
		TriggerWindowMinutes: envInt("TRIGGER_WINDOW_MINUTES", 2*pollInterval),
		ProximityRadiusKm:    envFloat("PROXIMITY_RADIUS_KM", 10),
		PollIntervalMinutes:  pollInterval,
		RolloverCutoffHour:   envInt("ROLLOVER_CUTOFF_HOUR", 12),

		FCMCredentialsFile: envOr("FIREBASE_CREDENTIALS_FILE", ""),

		SMTPHost:     envOr("SMTP_HOST", ""),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPUsername: envOr("SMTP_USERNAME", ""),
		SMTPPassword: envOr("SMTP_PASSWORD", ""),
		SMTPFrom:     envOr("SMTP_FROM", "no-reply@mealbridge.app"),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Zone resolves the configured business time zone.
func (c *Config) Zone() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// Policy translates the engine options into a notify.Policy.
func (c *Config) Policy() notify.Policy {
	p := notify.DefaultPolicy()
	p.ReminderLead = time.Duration(c.ReminderLeadMinutes) * time.Minute
	p.TriggerWindow = time.Duration(c.TriggerWindowMinutes) * time.Minute
	p.RadiusKm = c.ProximityRadiusKm
	p.RolloverCutoffHour = c.RolloverCutoffHour
	return p
}

// PollInterval returns the reminder sweep cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMinutes) * time.Minute
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
