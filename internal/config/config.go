// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// AppEnv is "production" or anything else. Production turns on HTTPS redirects.
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	// Port is the TCP port the HTTP server listens on.
	Port string `envconfig:"PORT" default:"8080"`

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// LogLevel controls the minimum log level: debug, info, warn or error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// CORSOrigins is the list of allowed cross-origin request origins, set as
	// a comma-separated CORS_ORIGINS. Defaults to the Vite dev server.
	CORSOrigins []string `ignored:"true"`
	CORSRaw     string   `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`

	// JWTSecret verifies the HS256 bearer tokens. Required.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// RedisAddr enables Idempotency-Key handling when set.
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	// ReceiptsDir is where uploaded receipts are written; ReceiptsBaseURL is
	// the public prefix they are served under.
	ReceiptsDir     string `envconfig:"RECEIPTS_DIR" default:"./data/comprobantes"`
	ReceiptsBaseURL string `envconfig:"RECEIPTS_BASE_URL" default:"http://localhost:8080/comprobantes"`

	MaxBodyBytes       int64         `envconfig:"MAX_BODY_BYTES" default:"10485760"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	MigrateOnStart     bool          `envconfig:"MIGRATE_ON_START" default:"false"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are unset or empty.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}

	// envconfig accepts a required variable that is set but empty.
	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("config.Load: LOG_LEVEL: %w", err)
	}
	cfg.CORSOrigins = splitCSV(cfg.CORSRaw)
	return cfg, nil
}

// IsProduction reports whether the server runs in production.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SlogLevel returns LogLevel as a slog.Level. Load has already validated it.
func (c Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
