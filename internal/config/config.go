// Package config provides environment-driven configuration for the network server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL   Secret
	Port          string
	ListenHost    string
	CORSOrigins   []string
	LogLevel      string
	APIToken      Secret
	AutoMigrate   bool
	DBMaxConns    int
	MaxDepth      int
	MaxNodes      int
	MaxSeedEdges  int
	CacheSize     int
	CacheTTL      time.Duration
	RateLimit     float64
	RateBurst     int
	WSMaxSessions int
	WSMaxPerIP    int
	WarmPersonIDs []int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: Secret(envOrDefault("DATABASE_URL", "")),
		Port:        envOrDefault("PORT", "3030"),
		ListenHost:  envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		APIToken:    Secret(envOrDefault("API_TOKEN", "")),
		AutoMigrate: envOrDefault("AUTO_MIGRATE", "false") == "true",
	}

	ints := []struct {
		key      string
		fallback string
		min, max int
		dst      *int
	}{
		{"DB_MAX_CONNS", "8", 1, 200, &cfg.DBMaxConns},
		{"MAX_DEPTH", "3", 1, 10, &cfg.MaxDepth},
		{"MAX_NODES", "5000", 1, 1_000_000, &cfg.MaxNodes},
		{"MAX_SEED_EDGES", "2000", 1, 1_000_000, &cfg.MaxSeedEdges},
		{"CACHE_SIZE", "256", 0, 100_000, &cfg.CacheSize},
		{"RATE_BURST", "20", 1, 10_000, &cfg.RateBurst},
		{"WS_MAX_SESSIONS", "200", 1, 10_000, &cfg.WSMaxSessions},
		{"WS_MAX_PER_IP", "4", 1, 1_000, &cfg.WSMaxPerIP},
	}

	for _, it := range ints {
		v, err := strconv.Atoi(envOrDefault(it.key, it.fallback))
		if err != nil || v < it.min || v > it.max {
			return nil, fmt.Errorf("%s must be an integer between %d and %d", it.key, it.min, it.max)
		}

		*it.dst = v
	}

	ttl, err := time.ParseDuration(envOrDefault("CACHE_TTL", "10m"))
	if err != nil || ttl < 0 {
		return nil, fmt.Errorf("CACHE_TTL must be a non-negative duration such as 10m")
	}
	cfg.CacheTTL = ttl

	rps, err := strconv.ParseFloat(envOrDefault("RATE_LIMIT", "10"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT must be a positive number of requests per second")
	}
	cfg.RateLimit = rps

	warm, err := parseIDList(os.Getenv("WARM_PERSON_IDS"))
	if err != nil {
		return nil, fmt.Errorf("WARM_PERSON_IDS: %w", err)
	}
	cfg.WarmPersonIDs = warm

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// parseIDList parses a comma-separated list of positive person IDs.
func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))

	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid person id %q", strings.TrimSpace(p))
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
