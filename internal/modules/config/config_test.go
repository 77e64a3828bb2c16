package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) Path {
	t.Helper()
	p := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return Path(p)
}

func TestNewConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewConfig(Path(filepath.Join(t.TempDir(), "nope.yaml")))
	require.NoError(t, err)

	assert.Equal(t, 120*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 5000.0, cfg.Monitor.MinPositionValue)
	assert.Equal(t, StorageFile, cfg.Storage.Driver)
	assert.Equal(t, TransportHTTP, cfg.Hyperliquid.Transport)
}

func TestNewConfig_FileOverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
monitor:
  interval: 30s
  error_cooldown: 90s
  min_position_value: 100
  parallelism: 8
storage:
  driver: memory
telegram:
  authorized_users: [1, 2]
`)
	cfg, err := NewConfig(p)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 90*time.Second, cfg.Monitor.ErrorCooldown)
	assert.Equal(t, 100.0, cfg.Monitor.MinPositionValue)
	assert.Equal(t, 8, cfg.Monitor.Parallelism)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.AuthorizedUsers)
	// untouched keys keep defaults
	assert.Equal(t, 20*time.Second, cfg.Monitor.FetchTimeout)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("AUTHORIZED_USERS", "10, 20,,x")
	t.Setenv("MONITOR_INTERVAL", "60")
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/db")

	cfg, err := NewConfig(Path(filepath.Join(t.TempDir(), "nope.yaml")))
	require.NoError(t, err)

	assert.Equal(t, "tok", cfg.Telegram.Token)
	assert.Equal(t, []int64{10, 20}, cfg.Telegram.AuthorizedUsers)
	assert.Equal(t, time.Minute, cfg.Monitor.Interval)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
}

func TestNewConfig_DefaultAddressLowercased(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, `
monitor:
  default_address: " 0xF3F496C9486BE5924A93D67E98298733BB47057C "
`))
	require.NoError(t, err)
	assert.Equal(t, "0xf3f496c9486be5924a93d67e98298733bb47057c", cfg.Monitor.DefaultAddress)
}

func TestNewConfig_BadDefaultAddress(t *testing.T) {
	_, err := NewConfig(writeConfig(t, "monitor:\n  default_address: nope\n"))
	assert.ErrorContains(t, err, "default_address")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero interval", func(c *Config) { c.Monitor.Interval = 0 }},
		{"cooldown not longer than interval", func(c *Config) { c.Monitor.ErrorCooldown = c.Monitor.Interval }},
		{"no parallelism", func(c *Config) { c.Monitor.Parallelism = 0 }},
		{"negative threshold", func(c *Config) { c.Monitor.MinPositionValue = -1 }},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = StoragePostgres }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }},
		{"unknown transport", func(c *Config) { c.Hyperliquid.Transport = "grpc" }},
		{"malformed default address", func(c *Config) { c.Monitor.DefaultAddress = "0x1234" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestIsAuthorized(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.IsAuthorized(42))

	cfg.Telegram.AuthorizedUsers = []int64{7}
	assert.True(t, cfg.IsAuthorized(7))
	assert.False(t, cfg.IsAuthorized(42))
}
