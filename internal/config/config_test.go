package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("API_TIMEOUT_SECONDS", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("REPORT_INTERVAL_HOURS", "")
	t.Setenv("CELEBRATE_MS", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, SessionStoreDB, cfg.SessionStore)
	assert.Equal(t, 5*time.Hour, cfg.ReportInterval)
	assert.Equal(t, time.Second, cfg.CelebrateDuration)
	assert.Equal(t, "calendar_planner.db", cfg.DatabaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("API_BASE_URL", "https://planner.example.com/api/")
	t.Setenv("API_TIMEOUT_SECONDS", "3")
	t.Setenv("SESSION_STORE", "REDIS")
	t.Setenv("REPORT_INTERVAL_HOURS", "2")
	t.Setenv("CELEBRATE_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://planner.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Equal(t, SessionStoreRedis, cfg.SessionStore)
	assert.Equal(t, 2*time.Hour, cfg.ReportInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.CelebrateDuration)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("API_TIMEOUT_SECONDS", "soon")
	t.Setenv("REPORT_INTERVAL_HOURS", "-4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 5*time.Hour, cfg.ReportInterval)
}

func TestLoad_RequiresSurface(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("TELEGRAM_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownSessionStore(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("SESSION_STORE", "memcached")

	_, err := Load()
	assert.Error(t, err)
}
