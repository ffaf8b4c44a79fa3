package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 12345, cfg.Port)
	assert.Equal(t, 50, cfg.MaxClients)
	assert.Equal(t, 4096, cfg.MaxMessageSize)
	assert.Equal(t, ":8080", cfg.AdminAddr)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.Zero(t, cfg.IdleTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestConfigSanitize(t *testing.T) {
	cfg := &Config{
		Port:       -1,
		MaxClients: 0,
		RateLimit:  RateLimitConfig{Burst: -3},
	}
	cfg.Sanitize()

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 12345, cfg.Port)
	assert.Equal(t, 50, cfg.MaxClients)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
}

func TestConfigListenAddr(t *testing.T) {
	cfg := &Config{Host: "0.0.0.0", Port: 9000}
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("CHAT_HOST", "10.0.0.1")
	t.Setenv("CHAT_PORT", "4242")
	t.Setenv("CHAT_MAX_CLIENTS", "10")
	t.Setenv("CHAT_IDLE_TIMEOUT", "30s")
	t.Setenv("CHAT_LOG_LEVEL", "debug")

	cfg := NewConfigFromEnv()

	assert.Equal(t, "10.0.0.1", cfg.Host)
	assert.Equal(t, 4242, cfg.Port)
	assert.Equal(t, 10, cfg.MaxClients)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestNewConfigFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("CHAT_PORT", "not-a-port")
	t.Setenv("CHAT_MAX_CLIENTS", "-4")

	cfg := NewConfigFromEnv()

	assert.Equal(t, 12345, cfg.Port)
	assert.Equal(t, 50, cfg.MaxClients)
}

func TestDurationEnvAcceptsBareSeconds(t *testing.T) {
	t.Setenv("CHAT_PING_INTERVAL", "7")

	cfg := NewConfigFromEnv()
	assert.Equal(t, 7*time.Second, cfg.PingInterval)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.toml")
	content := `
host = "192.168.1.5"
port = 2222
max_clients = 8
admin_addr = ":9090"
allowed_origins = ["http://dashboard.local"]
log_level = "warn"

[rate_limit]
burst = 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.5", cfg.Host)
	assert.Equal(t, 2222, cfg.Port)
	assert.Equal(t, 8, cfg.MaxClients)
	assert.Equal(t, ":9090", cfg.AdminAddr)
	assert.Equal(t, []string{"http://dashboard.local"}, cfg.AllowedOrigins)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	// Unspecified values fall back to defaults through Sanitize.
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
}

func TestLoadConfigFileEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.toml")
	require.NoError(t, os.WriteFile(path, []byte(`port = 2222`), 0o644))

	t.Setenv("CHAT_PORT", "3333")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3333, cfg.Port)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
