package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the gateway components need. It is loaded once at
// startup and handed to each constructor; nothing reads the environment after
// Load returns, so components can be tested with arbitrary values.
type Config struct {
	Port      string
	DBHost    string
	DBUser    string
	DBPass    string
	DBName    string
	JWTSecret string

	// Upstream workflow engine.
	UpstreamBaseURL       string
	UpstreamTimeout       time.Duration // per attempt
	UpstreamRetryMax      int           // extra attempts after the first
	UpstreamRetryDelay    time.Duration // linear backoff base
	UpstreamHealthTimeout time.Duration

	// Background queue for audit writes and idempotency completion.
	QueueSize    int
	QueueWorkers int

	// Idempotency record retention, enforced by the store's reaper query.
	IdempotencyTTL time.Duration

	// Case-insensitive substrings marking a payload field as sensitive.
	SensitivePatterns []string
}

// DefaultSensitivePatterns covers credentials and traveler PII. Overridable via
// SENSITIVE_FIELD_PATTERNS (comma-separated) so new fields need no code change.
var DefaultSensitivePatterns = []string{
	"password", "token", "secret", "api_key", "apikey",
	"passport", "document", "national_id",
	"card", "cvv",
	"email", "phone",
	"first_name", "last_name", "full_name", "surname",
	"birth", "dob", "address",
}

// Load reads .env (if present) and the environment into a Config with
// documented defaults: 30s upstream timeout, 2 extra attempts, 1000ms base
// delay, 7 day idempotency retention.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional in containers

	cfg := &Config{
		Port:      envStr("PORT", "8080"),
		DBHost:    envStr("DB_HOST", "db"),
		DBUser:    os.Getenv("DB_USER"),
		DBPass:    os.Getenv("DB_PASSWORD"),
		DBName:    os.Getenv("DB_NAME"),
		JWTSecret: os.Getenv("JWT_SECRET_KEY"),

		UpstreamBaseURL:       envStr("UPSTREAM_BASE_URL", "http://localhost:9090"),
		UpstreamTimeout:       time.Duration(envInt("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		UpstreamRetryMax:      envInt("UPSTREAM_RETRY_MAX", 2),
		UpstreamRetryDelay:    time.Duration(envInt("UPSTREAM_RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,
		UpstreamHealthTimeout: time.Duration(envInt("UPSTREAM_HEALTH_TIMEOUT_SECONDS", 5)) * time.Second,

		QueueSize:    envInt("BACKGROUND_QUEUE_SIZE", 1024),
		QueueWorkers: envInt("BACKGROUND_QUEUE_WORKERS", 2),

		IdempotencyTTL: time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", 7*24)) * time.Hour,

		SensitivePatterns: envList("SENSITIVE_FIELD_PATTERNS", DefaultSensitivePatterns),
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		// Fallback kept for older deployments.
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT secret not configured (set JWT_SECRET_KEY or JWT_SECRET)")
	}
	if cfg.UpstreamRetryMax < 0 {
		cfg.UpstreamRetryMax = 0
	}
	return cfg, nil
}

// envStr reads a string env var with a default fallback.
func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envList reads a comma-separated env var with a default fallback.
func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
