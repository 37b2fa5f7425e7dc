package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Listen)
	assert.Equal(t, "30s", cfg.Server.ReadTimeout)
	assert.Equal(t, "60s", cfg.Server.WriteTimeout)
	assert.Equal(t, config.BackendSQLite, cfg.Storage.NotificationsBackend)
	assert.Equal(t, 1200*time.Millisecond, cfg.Alerts.DebounceWindow)
	assert.Equal(t, 30*time.Second, cfg.Alerts.SuppressionWindow)
	assert.True(t, cfg.Alerts.SuppressBP)
	assert.False(t, cfg.Alerts.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Alerts.Kafka.Brokers)
	assert.Equal(t, "pulse.notifications", cfg.Alerts.Kafka.Topic)
	assert.True(t, cfg.Feed.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Feed.Interval)
	assert.Equal(t, time.Minute, cfg.Wearable.PollInterval)
	assert.InDelta(t, 0.1, cfg.Wearable.FailureRate, 1e-9)
	assert.Equal(t, 500*time.Millisecond, cfg.Wearable.Latency)
	assert.Equal(t, "pulse:notifications:", cfg.Redis.KeyPrefix)
	assert.Equal(t, "pulse/vitals", cfg.MQTT.TopicPrefix)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "default", cfg.Defaults.User)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
storage:
  path: /tmp/test.db
  notifications_backend: redis
server:
  listen: ":9090"
alerts:
  debounce_window: 500ms
  suppress_bp: false
  kafka:
    enabled: true
    brokers: ["kafka-1:9092", "kafka-2:9092"]
logging:
  level: debug
defaults:
  user: alice
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, config.BackendRedis, cfg.Storage.NotificationsBackend)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 500*time.Millisecond, cfg.Alerts.DebounceWindow)
	assert.False(t, cfg.Alerts.SuppressBP)
	assert.True(t, cfg.Alerts.Kafka.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Alerts.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "alice", cfg.Defaults.User)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PULSE_LOGGING_LEVEL", "error")
	t.Setenv("PULSE_SERVER_LISTEN", ":7070")
	t.Setenv("PULSE_ALERTS_SUPPRESSION_WINDOW", "45s")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Server.Listen)
	assert.Equal(t, 45*time.Second, cfg.Alerts.SuppressionWindow)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	err := os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown backend", "storage:\n  notifications_backend: mongo\n"},
		{"failure rate", "wearable:\n  failure_rate: 1.5\n"},
		{"kafka without topic", "alerts:\n  kafka:\n    enabled: true\n    topic: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(tt.data), 0o644))

			_, err := config.Load(cfgPath)
			assert.Error(t, err)
		})
	}
}
