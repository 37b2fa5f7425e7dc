package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/internal/server"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/feed"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/ingest"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/notify"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/wearable"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring service and HTTP API",
	Long: `Start the alerting pipeline, the simulated vitals feed, the wearable poller,
the optional MQTT ingest adapter and the HTTP API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
	serveCmd.Flags().Bool("no-feed", false, "Disable the simulated heart-rate feed")
	serveCmd.Flags().StringSlice("poll", nil, "Device ids to start polling immediately")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen != "" {
		cfg.Server.Listen = listen
	}
	noFeed, _ := cmd.Flags().GetBool("no-feed")
	pollIDs, _ := cmd.Flags().GetStringSlice("poll")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := initApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	user := currentUser(cfg)

	stopWatch := notify.WatchUnread(a.bus, a.feeds)
	defer stopWatch()

	// Wearable polling
	source := wearable.NewSimulatedSource(cfg.Wearable.FailureRate, cfg.Wearable.Latency, uint64(time.Now().UnixNano()))
	poller := wearable.NewPoller(a.registry, source, a.readings, a.bus, a.pipeline, cfg.Wearable.PollInterval, logger)
	defer poller.StopAll()

	for _, id := range pollIDs {
		if err := poller.Start(ctx, user, id); err != nil {
			return fmt.Errorf("start polling %s: %w", id, err)
		}
	}

	// Simulated vitals feed
	if cfg.Feed.Enabled && !noFeed {
		f := feed.New(user, cfg.Feed.Interval, a.readings, uint64(time.Now().UnixNano()), logger)
		go f.Run(ctx)
	}

	// MQTT ingest
	if cfg.MQTT.Enabled {
		handler := ingest.NewHandler(a.readings, cfg.MQTT.TopicPrefix, logger)
		m, err := ingest.ConnectMQTT(ingest.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      1,
		}, handler, logger)
		if err != nil {
			return err
		}
		defer m.Close()

		if err := m.Subscribe(ctx); err != nil {
			return err
		}
	}

	apiServer := server.NewServer(server.Services{
		Readings:    a.readings,
		Feeds:       a.feeds,
		Devices:     a.registry,
		Poller:      poller,
		DefaultUser: user,
	}, logger)

	readTimeout, _ := time.ParseDuration(cfg.Server.ReadTimeout)
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout, _ := time.ParseDuration(cfg.Server.WriteTimeout)
	if writeTimeout == 0 {
		writeTimeout = 60 * time.Second
	}

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("pulse started", "listen", cfg.Server.Listen, "user", user)
		fmt.Fprintf(os.Stderr, "Pulse Guardian listening on %s\n", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("pulse stopped")
	return nil
}
