// Package config loads server configuration from the environment once at
// startup. The resulting Config is treated as immutable.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port          string
	DBPath        string
	DBBusyTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Realtime
	HeartbeatInterval time.Duration
	ChannelBuffer     int

	// Auth
	SessionTTL time.Duration

	// Rate limiting (auth endpoints)
	AuthRatePerMinute int
	AuthRateBurst     int
}

// Load reads configuration from SHARELIST_* environment variables,
// falling back to sensible defaults for anything unset.
func Load() Config {
	cfg := Config{
		Port:              envOr("SHARELIST_PORT", "8080"),
		DBPath:            envOr("SHARELIST_DB_PATH", "sharelist.db"),
		DBBusyTimeout:     envDurationOr("SHARELIST_DB_BUSY_TIMEOUT", 5*time.Second),
		LogLevel:          envOr("SHARELIST_LOG_LEVEL", "info"),
		LogFormat:         envOr("SHARELIST_LOG_FORMAT", "text"),
		HeartbeatInterval: envDurationOr("SHARELIST_HEARTBEAT_INTERVAL", 30*time.Second),
		ChannelBuffer:     envIntOr("SHARELIST_CHANNEL_BUFFER", 16),
		SessionTTL:        envDurationOr("SHARELIST_SESSION_TTL", 90*24*time.Hour),
		AuthRatePerMinute: envIntOr("SHARELIST_AUTH_RATE_PER_MINUTE", 10),
		AuthRateBurst:     envIntOr("SHARELIST_AUTH_RATE_BURST", 5),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
