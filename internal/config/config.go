package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all Pulse Guardian configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Wearable WearableConfig `mapstructure:"wearable"`
	Devices  DevicesConfig  `mapstructure:"devices"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// Notification storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// StorageConfig defines database settings.
type StorageConfig struct {
	Path                 string `mapstructure:"path"`
	NotificationsBackend string `mapstructure:"notifications_backend"`
}

// RedisConfig defines the Redis notification backend.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ServerConfig defines HTTP API settings.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// AlertsConfig defines the alerting pipeline and its integrations.
type AlertsConfig struct {
	DebounceWindow    time.Duration `mapstructure:"debounce_window"`
	SuppressionWindow time.Duration `mapstructure:"suppression_window"`
	SuppressBP        bool          `mapstructure:"suppress_bp"`
	Slack             SlackConfig   `mapstructure:"slack"`
	Webhook           WebhookConfig `mapstructure:"webhook"`
	Kafka             KafkaConfig   `mapstructure:"kafka"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// KafkaConfig defines the outbound notification stream.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// FeedConfig defines the simulated vitals feed.
type FeedConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// WearableConfig defines the simulated wearable poller.
type WearableConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	FailureRate  float64       `mapstructure:"failure_rate"`
	Latency      time.Duration `mapstructure:"latency"`
}

// DevicesConfig points at the device catalogue.
type DevicesConfig struct {
	File string `mapstructure:"file"`
}

// MQTTConfig defines the MQTT ingest adapter.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultsConfig defines default values.
type DefaultsConfig struct {
	User string `mapstructure:"user"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".pulse"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".pulse", "pulse.db"))
	v.SetDefault("storage.notifications_backend", BackendSQLite)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "pulse:notifications:")
	v.SetDefault("server.listen", ":8090")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("alerts.debounce_window", "1.2s")
	v.SetDefault("alerts.suppression_window", "30s")
	v.SetDefault("alerts.suppress_bp", true)
	v.SetDefault("alerts.slack.channel", "#vitals")
	v.SetDefault("alerts.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("alerts.kafka.topic", "pulse.notifications")
	v.SetDefault("feed.enabled", true)
	v.SetDefault("feed.interval", "2s")
	v.SetDefault("wearable.poll_interval", "60s")
	v.SetDefault("wearable.failure_rate", 0.1)
	v.SetDefault("wearable.latency", "500ms")
	v.SetDefault("devices.file", "devices.yaml")
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "pulse")
	v.SetDefault("mqtt.topic_prefix", "pulse/vitals")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("defaults.user", "default")

	// Environment variables
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.NotificationsBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("storage.notifications_backend: unknown backend %q", c.Storage.NotificationsBackend)
	}
	if c.Wearable.FailureRate < 0 || c.Wearable.FailureRate > 1 {
		return fmt.Errorf("wearable.failure_rate: %v not in [0,1]", c.Wearable.FailureRate)
	}
	if c.Alerts.DebounceWindow < 0 || c.Alerts.SuppressionWindow < 0 {
		return fmt.Errorf("alerts: windows must not be negative")
	}
	if c.Alerts.Kafka.Enabled && (len(c.Alerts.Kafka.Brokers) == 0 || c.Alerts.Kafka.Topic == "") {
		return fmt.Errorf("alerts.kafka: brokers and topic are required")
	}
	return nil
}
