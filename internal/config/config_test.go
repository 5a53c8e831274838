package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

klaviyo:
  base_url: "https://a.klaviyo.com/api"
  revision: "2024-10-15"
  timeout_seconds: 45

analysis:
  default_window_days: 60
  creation_pause_millis: 500
  initial_wait_seconds: 30
  poll_interval_seconds: 10
  max_polls: 4
  keep_total_segment: true

export:
  page_size: 50
  max_rows: 2000

notify:
  webhook_url: "https://hooks.example.com/T000/B000"
`
	cfg, err := Load(writeConfig(t, configContent))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "https://a.klaviyo.com/api", cfg.Klaviyo.BaseURL)
	assert.Equal(t, "2024-10-15", cfg.Klaviyo.Revision)
	assert.Equal(t, 45*time.Second, cfg.Klaviyo.Timeout())

	assert.Equal(t, 60, cfg.Analysis.DefaultWindowDays)
	assert.Equal(t, 500*time.Millisecond, cfg.Analysis.CreationPause())
	assert.Equal(t, 30*time.Second, cfg.Analysis.InitialWait())
	assert.Equal(t, 10*time.Second, cfg.Analysis.PollInterval())
	assert.Equal(t, 4, cfg.Analysis.MaxPolls)
	assert.True(t, cfg.Analysis.KeepTotalSegment)

	assert.Equal(t, 50, cfg.Export.PageSize)
	assert.Equal(t, 2000, cfg.Export.MaxRows)
	assert.Equal(t, "https://hooks.example.com/T000/B000", cfg.Notify.WebhookURL)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 0\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 60*time.Second, cfg.Klaviyo.Timeout())
	assert.Equal(t, 90, cfg.Analysis.DefaultWindowDays)
	assert.Equal(t, time.Second, cfg.Analysis.CreationPause())
	assert.Equal(t, 15*time.Second, cfg.Analysis.InitialWait())
	assert.Equal(t, 6, cfg.Analysis.MaxPolls)
	assert.False(t, cfg.Analysis.KeepTotalSegment)
	assert.Equal(t, 100, cfg.Export.PageSize)
	assert.Equal(t, 5000, cfg.Export.MaxRows)
	assert.Empty(t, cfg.Cache.RedisURL)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("KLAVIYO_BASE_URL", "http://localhost:9999/api")
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://hooks.example.com/override")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("PORT", "3000")

	cfg, err := LoadFromEnv(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/api", cfg.Klaviyo.BaseURL)
	assert.Equal(t, "https://hooks.example.com/override", cfg.Notify.WebhookURL)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Cache.RedisURL)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
