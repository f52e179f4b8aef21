// Package config loads runtime configuration from the environment, with an
// optional .env file for development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// APIBaseURL is the HR backend the remote client talks to.
	APIBaseURL string

	// CachePath is the SQLite file for the durable local cache.
	CachePath string

	// HTTPTimeout bounds every remote call.
	HTTPTimeout time.Duration

	// WatchInterval is the cache-revision polling interval.
	WatchInterval time.Duration

	// Port is where the fake backend listens.
	Port int
}

// Load reads configuration from the environment. A .env file is honored when
// present and silently skipped otherwise. Unset or unparsable values fall
// back to the defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIBaseURL:    getEnv("LEAVE_API_BASE_URL", "http://localhost:8090/api"),
		CachePath:     getEnv("LEAVE_CACHE_PATH", "leave-cache.db"),
		HTTPTimeout:   getDuration("LEAVE_HTTP_TIMEOUT", 10*time.Second),
		WatchInterval: getDuration("LEAVE_WATCH_INTERVAL", 2*time.Second),
		Port:          getInt("LEAVE_API_PORT", 8090),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
