package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "pq", cfg.Storage.Client)
	assert.Zero(t, cfg.Audit.AsyncBuffer)
	assert.Equal(t, 2, cfg.Policy.MaxDevices)
	assert.Equal(t, 30, cfg.Policy.MaxLostWindowDays)
	assert.Equal(t, 2*time.Minute, cfg.Policy.ChallengeTTL)
	assert.InDelta(t, 7.0, cfg.Policy.FullDayHours, 0.001)
	assert.False(t, cfg.Policy.AllowMultipleCredentials)
	assert.True(t, cfg.UsingDevSigningKey())
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.RateLimit.ClockPerMinute)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clockgate.yaml")
	body := []byte(`
server:
  addr: ":9090"
policy:
  max_devices: 3
  challenge_ttl: 90s
kafka:
  brokers: "a:9092, b:9092,a:9092"
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("CLOCKGATE_POLICY_MAX_DEVICES", "4")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Policy.MaxDevices)
	assert.Equal(t, 90*time.Second, cfg.Policy.ChallengeTTL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.BrokerList())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Chdir(t.TempDir())
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	t.Run("postgres requires dsn", func(t *testing.T) {
		cfg := base(t)
		cfg.Storage.Driver = "postgres"
		require.Error(t, cfg.Validate())
		cfg.Storage.PostgresDSN = "postgres://localhost/clockgate"
		require.NoError(t, cfg.Validate())
	})

	t.Run("postgres client", func(t *testing.T) {
		cfg := base(t)
		cfg.Storage.Driver = "postgres"
		cfg.Storage.PostgresDSN = "postgres://localhost/clockgate"
		cfg.Storage.Client = "pgx"
		require.NoError(t, cfg.Validate())
		cfg.Storage.Client = "odbc"
		require.Error(t, cfg.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base(t)
		cfg.Storage.Driver = "sqlite"
		require.Error(t, cfg.Validate())
	})

	t.Run("negative audit buffer", func(t *testing.T) {
		cfg := base(t)
		cfg.Audit.AsyncBuffer = -1
		require.Error(t, cfg.Validate())
		cfg.Audit.AsyncBuffer = 256
		require.NoError(t, cfg.Validate())
	})

	t.Run("bad timezone", func(t *testing.T) {
		cfg := base(t)
		cfg.Policy.Timezone = "Mars/Olympus"
		require.Error(t, cfg.Validate())
	})

	t.Run("zero capacity", func(t *testing.T) {
		cfg := base(t)
		cfg.Policy.MaxDevices = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("rate limit budgets", func(t *testing.T) {
		cfg := base(t)
		cfg.RateLimit.ReadPerMinute = 0
		require.Error(t, cfg.Validate())
		cfg.RateLimit.Enabled = false
		require.NoError(t, cfg.Validate())
	})
}
