// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Trip store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRemote   = "remote"
)

// Token store backends.
const (
	TokensMemory = "memory"
	TokensFile   = "file"
	TokensRedis  = "redis"
)

// Config holds all configuration values for the daemon.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	CORSOrigins []string

	// SupabaseURL and SupabaseAnonKey identify the hosted identity project. Required.
	SupabaseURL     string
	SupabaseAnonKey string

	// SupabaseJWTSecret, when set, makes session checks verify the access
	// token's signature instead of only reading its expiry.
	SupabaseJWTSecret string

	// TripStore selects the trip backend: sqlite (default), postgres or remote.
	TripStore  string
	SQLitePath string
	// DatabaseURL is required when TripStore is postgres.
	DatabaseURL string
	// TripRealtime makes the remote store follow realtime change events.
	TripRealtime bool

	// TokenStore selects where session tokens live: memory, file (default) or redis.
	TokenStore        string
	TokenStorePath    string
	TokenStoreKeyPath string
	// RedisURL is required when TokenStore is redis.
	RedisURL string

	// AllowUnverified lets a user whose only problem is an unconfirmed email
	// in provisionally. Defaults to true.
	AllowUnverified bool

	// HTTPTimeout bounds every identity provider call. Defaults to 10s.
	HTTPTimeout time.Duration

	// SessionRefreshSchedule is a cron schedule for background session refresh.
	// Empty disables it. Defaults to "@every 10m".
	SessionRefreshSchedule string

	// AuthRateLimit is the per-client request rate on /auth intents.
	AuthRateLimit float64

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or the
// first value that does not parse.
func Load() (Config, error) {
	cfg := Config{
		Port:                   getEnv("PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		CORSOrigins:            splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		SupabaseJWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
		TripStore:              strings.ToLower(getEnv("TRIP_STORE", StoreSQLite)),
		SQLitePath:             getEnv("SQLITE_PATH", "globaltrip.db"),
		TokenStore:             strings.ToLower(getEnv("TOKEN_STORE", TokensFile)),
		TokenStorePath:         getEnv("TOKEN_STORE_PATH", "tokens.age"),
		TokenStoreKeyPath:      getEnv("TOKEN_STORE_KEY_PATH", "tokens.key"),
		SessionRefreshSchedule: getEnvAllowEmpty("SESSION_REFRESH_SCHEDULE", "@every 10m"),
	}

	var err error
	if cfg.TripRealtime, err = parseBool("TRIP_REALTIME", false); err != nil {
		return Config{}, err
	}
	if cfg.AllowUnverified, err = parseBool("AUTH_ALLOW_UNVERIFIED", true); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = parseDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.AuthRateLimit, err = parseFloat("AUTH_RATE_LIMIT", 5); err != nil {
		return Config{}, err
	}
	if cfg.MaxBodyBytes, err = parseInt("MAX_BODY_BYTES", 1<<20); err != nil {
		return Config{}, err
	}

	switch cfg.TripStore {
	case StoreSQLite, StorePostgres, StoreRemote:
	default:
		return Config{}, fmt.Errorf("TRIP_STORE: unknown store %q (want sqlite, postgres or remote)", cfg.TripStore)
	}
	switch cfg.TokenStore {
	case TokensMemory, TokensFile, TokensRedis:
	default:
		return Config{}, fmt.Errorf("TOKEN_STORE: unknown store %q (want memory, file or redis)", cfg.TokenStore)
	}

	var missing []string

	cfg.SupabaseURL = os.Getenv("SUPABASE_URL")
	if cfg.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	cfg.SupabaseAnonKey = os.Getenv("SUPABASE_ANON_KEY")
	if cfg.SupabaseAnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.TripStore == StorePostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.TokenStore == TokensRedis && cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvAllowEmpty is getEnv for variables where an explicit empty value
// means "off".
func getEnvAllowEmpty(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func parseBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func parseInt(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
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
