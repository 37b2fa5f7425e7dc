package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/internal/config"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/alerting"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/bus"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/clock"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/devices"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/notify"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/readings"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgFile  string
	userFlag string
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse Guardian - blood pressure and heart-rate monitoring with alerts",
	Long: `Pulse Guardian records blood-pressure readings and heart-rate samples from
manual entry and wearable devices, classifies them, and raises debounced,
de-duplicated health alerts into a per-user notification feed.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.pulse/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "user id (default from config)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// currentUser resolves the --user flag against the configured default.
func currentUser(cfg *config.Config) string {
	if userFlag != "" {
		return userFlag
	}
	return cfg.Defaults.User
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStorage opens the reading database.
func initStorage(cfg *config.Config) (*storage.SQLite, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initNotificationBackend selects where notification feeds persist. A nil
// backend keeps feeds in memory only.
func initNotificationBackend(ctx context.Context, cfg *config.Config, store *storage.SQLite) (storage.NotificationStorage, func() error, error) {
	switch cfg.Storage.NotificationsBackend {
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		r, err := storage.NewRedis(ctx, storage.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	case config.BackendMemory:
		return nil, nil, nil
	default:
		return store, nil, nil
	}
}

// initNotifiers creates outbound alert notifiers from config.
func initNotifiers(cfg *config.Config) ([]alerts.Notifier, []func() error, error) {
	var notifiers []alerts.Notifier
	var closers []func() error

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	if cfg.Alerts.Kafka.Enabled {
		k, err := alerts.NewKafkaNotifier(cfg.Alerts.Kafka.Brokers, cfg.Alerts.Kafka.Topic)
		if err != nil {
			return nil, nil, fmt.Errorf("init kafka notifier: %w", err)
		}
		notifiers = append(notifiers, k)
		closers = append(closers, k.Close)
	}

	return notifiers, closers, nil
}

// initRegistry loads the device catalogue, falling back to the built-in
// devices when no catalogue file exists.
func initRegistry(cfg *config.Config) (*devices.Registry, error) {
	list := devices.DefaultDevices()
	if cfg.Devices.File != "" {
		if _, err := os.Stat(cfg.Devices.File); err == nil {
			list, err = devices.LoadFile(cfg.Devices.File)
			if err != nil {
				return nil, err
			}
		}
	}
	return devices.NewRegistryWith(list)
}

// app is the wired alerting core shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *storage.SQLite
	bus      *bus.Bus
	clock    clock.Clock
	feeds    *notify.Manager
	readings *readings.Service
	pipeline *alerting.Pipeline
	registry *devices.Registry
	closers  []func() error
}

// initApp creates a fully wired alerting core. The pipeline is started.
func initApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := newLogger(cfg)

	store, err := initStorage(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		bus:     bus.New(logger),
		clock:   clock.New(),
		closers: []func() error{store.Close},
	}

	backend, closeBackend, err := initNotificationBackend(ctx, cfg, store)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeBackend != nil {
		a.closers = append(a.closers, closeBackend)
	}

	notifiers, closers, err := initNotifiers(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closers...)

	a.registry, err = initRegistry(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.feeds = notify.NewManager(backend, a.bus, a.clock, logger)
	a.readings = readings.NewService(store, a.bus, a.clock, logger)
	a.pipeline = alerting.NewPipeline(a.bus, a.feeds, notifiers, a.clock, alerting.Options{
		DebounceWindow:    cfg.Alerts.DebounceWindow,
		SuppressionWindow: cfg.Alerts.SuppressionWindow,
		SuppressBP:        cfg.Alerts.SuppressBP,
	}, logger)
	a.pipeline.Start(ctx)

	return a, nil
}

// Close stops the pipeline and releases resources in reverse order.
func (a *app) Close() {
	if a.pipeline != nil {
		a.pipeline.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close resource", "error", err)
		}
	}
}
