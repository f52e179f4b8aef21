package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/staffhive/leave-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, "http://localhost:8090/api", cfg.APIBaseURL)
	assert.Equal(t, "leave-cache.db", cfg.CachePath)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2*time.Second, cfg.WatchInterval)
	assert.Equal(t, 8090, cfg.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LEAVE_API_BASE_URL", "https://hr.internal/api")
	t.Setenv("LEAVE_CACHE_PATH", "/var/lib/leave/cache.db")
	t.Setenv("LEAVE_HTTP_TIMEOUT", "3s")
	t.Setenv("LEAVE_WATCH_INTERVAL", "500ms")
	t.Setenv("LEAVE_API_PORT", "9000")

	cfg := config.Load()

	assert.Equal(t, "https://hr.internal/api", cfg.APIBaseURL)
	assert.Equal(t, "/var/lib/leave/cache.db", cfg.CachePath)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchInterval)
	assert.Equal(t, 9000, cfg.Port)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("LEAVE_HTTP_TIMEOUT", "soon")
	t.Setenv("LEAVE_API_PORT", "not-a-port")

	cfg := config.Load()

	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 8090, cfg.Port)
}
