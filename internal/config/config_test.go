package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SESSION_STORAGE", "API_BASE_URL", "AUTH_API_ADDR", "APP_HOST", "APP_PORT",
		"SESSION_VALIDATION_INTERVAL_SECONDS", "SESSION_MAX_TIMER_SEGMENT_HOURS", "SESSION_LOGIN_PATH"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Session.Storage)
	assert.Equal(t, time.Minute, cfg.Session.ValidationInterval())
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxTimerSegment())
	assert.Equal(t, "/login", cfg.Session.LoginPath)
	assert.Equal(t, "127.0.0.1:8080", cfg.API.ListenAddr)
	assert.Equal(t, "127.0.0.1:8090", cfg.App.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_STORAGE", StorageSQLite)
	t.Setenv("SESSION_VALIDATION_INTERVAL_SECONDS", "5")
	t.Setenv("SESSION_MAX_TIMER_SEGMENT_HOURS", "2")
	t.Setenv("API_BASE_URL", "http://api.travel.test:9000")
	t.Setenv("API_TIMEOUT_SECONDS", "3")
	t.Setenv("AUTH_API_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageSQLite, cfg.Session.Storage)
	assert.Equal(t, 5*time.Second, cfg.Session.ValidationInterval())
	assert.Equal(t, 2*time.Hour, cfg.Session.MaxTimerSegment())
	assert.Equal(t, 3*time.Second, cfg.API.Timeout())
	assert.Equal(t, "api.travel.test:9000", cfg.API.ListenAddr)
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	t.Setenv("SESSION_STORAGE", "floppy")

	_, err := Load()
	assert.Error(t, err)
}

func TestNonPositiveDurationsFallBack(t *testing.T) {
	s := SessionConfig{ValidationIntervalSeconds: -1}
	assert.Equal(t, time.Minute, s.ValidationInterval())
	assert.Equal(t, 24*time.Hour, s.MaxTimerSegment())
	assert.Zero(t, APIConfig{}.Timeout())
	assert.Zero(t, AppConfig{}.RequestTimeout())
}
