package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "ws://localhost:8081/ws", cfg.Session.URL)
	assert.True(t, cfg.Session.Reconnect.Enabled)
	assert.Equal(t, 5, cfg.Session.Reconnect.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Session.Reconnect.InitialDelay)
	assert.Equal(t, 30*time.Second, cfg.Session.Reconnect.MaxDelay)
	assert.Equal(t, 48000, cfg.Capture.SampleRate)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Address, cfg.Server.Address)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  address: ":9090"
session:
  url: "wss://voice.example.com/ws"
  reconnect:
    enabled: true
    max_attempts: 8
    multiplier: 1.5
    jitter: true
logging:
  level: debug
  format: console
redis:
  enabled: true
  address: "redis:6379"
  pool_size: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "wss://voice.example.com/ws", cfg.Session.URL)
	assert.Equal(t, 8, cfg.Session.Reconnect.MaxAttempts)
	assert.Equal(t, 1.5, cfg.Session.Reconnect.Multiplier)
	// Duration fields keep their defaults when the file does not set them.
	assert.Equal(t, 15*time.Second, cfg.Session.DialTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)

	// Untouched sections keep their defaults.
	assert.Equal(t, 48000, cfg.Capture.SampleRate)
	assert.Equal(t, 30*time.Second, cfg.Channel.PingInterval)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VOICELINK_SESSION_URL", "wss://env.example.com/ws")
	t.Setenv("VOICELINK_LOG_LEVEL", "warn")
	t.Setenv("VOICELINK_AUTH_TOKEN", "env-token")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "wss://env.example.com/ws", cfg.Session.URL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "env-token", cfg.Auth.Token)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server address", func(c *Config) { c.Server.Address = "" }},
		{"empty session url", func(c *Config) { c.Session.URL = "" }},
		{"zero dial timeout", func(c *Config) { c.Session.DialTimeout = 0 }},
		{"reconnect without attempts", func(c *Config) {
			c.Session.Reconnect.Enabled = true
			c.Session.Reconnect.MaxAttempts = 0
		}},
		{"max delay below initial", func(c *Config) {
			c.Session.Reconnect.MaxDelay = c.Session.Reconnect.InitialDelay / 2
		}},
		{"multiplier below one", func(c *Config) { c.Session.Reconnect.Multiplier = 0.5 }},
		{"pong not above ping", func(c *Config) { c.Channel.PongTimeout = c.Channel.PingInterval }},
		{"zero sample rate", func(c *Config) { c.Capture.SampleRate = 0 }},
		{"zero monitoring interval", func(c *Config) { c.Monitoring.Interval = 0 }},
		{"redis enabled without address", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Address = ""
		}},
		{"rate limiting without rps", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.HTTP.RequestsPerSecond = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
