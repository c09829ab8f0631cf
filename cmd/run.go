package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"github.com/smazurov/iss-notify/internal/config"
	"github.com/smazurov/iss-notify/internal/coordinator"
	"github.com/smazurov/iss-notify/internal/events"
	"github.com/smazurov/iss-notify/internal/led"
	"github.com/smazurov/iss-notify/internal/logging"
	"github.com/smazurov/iss-notify/internal/metrics"
	"github.com/smazurov/iss-notify/internal/mqtt"
	"github.com/smazurov/iss-notify/internal/nats"
	"github.com/smazurov/iss-notify/internal/systemd"
	"github.com/smazurov/iss-notify/internal/version"
)

const shutdownTimeout = 5 * time.Second

// run wires the notifier and blocks until it stops or a signal arrives.
func run(c *cobra.Command, opts *Options) error {
	ctx := c.Context()
	if err := logging.Initialize(opts.LoggingConfig()); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Close()

	logger := logging.GetLogger("main")
	logger.Info("Starting "+version.Name, "version", version.Version, "config", opts.Config)

	parser, err := opts.Parser()
	if err != nil {
		return err
	}
	fetcher := opts.Fetcher(logging.GetLogger("feed"))

	dev, err := led.New(opts.LEDOptions(), logging.GetLogger("led"))
	if err != nil {
		return fmt.Errorf("failed to open LED device: %w", err)
	}
	defer func() {
		if closeErr := dev.Close(); closeErr != nil {
			logger.Warn("Failed to close LED device", "error", closeErr)
		}
	}()

	bus := events.New()
	defer subscribeStatus(bus)()

	if opts.MetricsTextfile != "" {
		recorder := metrics.New(opts.MetricsTextfile, logging.GetLogger("metrics"))
		defer recorder.Subscribe(bus)()
		logger.Info("Writing metrics textfile", "path", opts.MetricsTextfile)
	}

	if opts.MQTTBroker != "" {
		publisher, mqttErr := mqtt.New(mqtt.Options{
			Broker:   opts.MQTTBroker,
			Topic:    opts.MQTTTopic,
			ClientID: opts.MQTTClientID,
			QoS:      1,
			Logger:   logging.GetLogger("mqtt"),
		})
		if mqttErr != nil {
			return mqttErr
		}
		defer publisher.Subscribe(bus)()
		if mqttErr = publisher.Start(ctx); mqttErr != nil {
			return mqttErr
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if stopErr := publisher.Stop(stopCtx); stopErr != nil {
				logger.Warn("Failed to stop MQTT publisher", "error", stopErr)
			}
		}()
	}

	if opts.NATSServer != "" {
		publisher := nats.NewPublisher(opts.NATSServer, logging.GetLogger("nats"))
		if natsErr := publisher.Connect(); natsErr != nil {
			logger.Warn("NATS unavailable, notifications will not be published there", "error", natsErr)
		}
		defer publisher.Close()
		defer publisher.Subscribe(bus)()
	}

	if stop := watchLoggingConfig(c, opts); stop != nil {
		defer stop()
	}

	notifier, err := coordinator.New(coordinator.Options{
		Fetcher:        fetcher,
		Parser:         parser,
		Device:         dev,
		Clock:          clock.RealClock{},
		Lead:           opts.ScheduleNotifyLead,
		EmptyPollDelay: opts.FeedEmptyPollDelay,
		Brightness:     opts.LEDBrightness,
		Bus:            bus,
		Logger:         logging.GetLogger("coordinator"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := notifier.Run(ctx); err != nil {
		logger.Error("Notifier stopped with error", "error", err)
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

// subscribeStatus mirrors the next scheduled pass into systemctl status.
func subscribeStatus(bus *events.Bus) func() {
	logger := logging.GetLogger("main")
	unsubs := []func(){
		bus.Subscribe(func(e events.NotificationScheduledEvent) {
			systemd.Status(logger, "Next pass "+e.EventTime.Format(time.DateTime))
		}),
		bus.Subscribe(func(e events.NotificationSentEvent) {
			systemd.Status(logger, "Notified for pass "+e.EventTime.Format(time.DateTime))
		}),
		bus.Subscribe(func(e events.PollFailedEvent) {
			systemd.Status(logger, "Feed "+e.Stage+" failed: "+e.Error)
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// watchLoggingConfig reapplies log levels when the config file changes.
// Flags and env keep their precedence over the file. Returns nil when there
// is no config file to watch.
func watchLoggingConfig(c *cobra.Command, opts *Options) func() {
	logger := logging.GetLogger("config")
	path := opts.Config
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Cannot watch config file", "path", path, "error", err)
		}
		return nil
	}

	watcher := config.NewConfigWatcher(path, func(string) (logging.Config, error) {
		return reloadLoggingConfig(c, *opts)
	}, logger)
	watcher.OnReload(logging.Reconfigure)
	if err := watcher.Start(); err != nil {
		logger.Warn("Failed to start config watcher", "error", err)
		return nil
	}
	return func() {
		if err := watcher.Stop(); err != nil {
			logger.Debug("Config watcher stop failed", "error", err)
		}
	}
}

// reloadLoggingConfig loads the options again on top of a copy of the
// running ones.
func reloadLoggingConfig(c *cobra.Command, fresh Options) (logging.Config, error) {
	if err := config.LoadConfig(&fresh, c); err != nil {
		return logging.Config{}, err
	}
	return fresh.LoggingConfig(), nil
}
