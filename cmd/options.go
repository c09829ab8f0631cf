package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/iss-notify/internal/animation"
	"github.com/smazurov/iss-notify/internal/config"
	"github.com/smazurov/iss-notify/internal/feed"
	"github.com/smazurov/iss-notify/internal/led"
	"github.com/smazurov/iss-notify/internal/logging"
	"github.com/smazurov/iss-notify/internal/scheduler"
	"github.com/smazurov/iss-notify/internal/sighting"
)

// DefaultConfigFile is read from the working directory when --config is not given.
const DefaultConfigFile = "iss-notify.toml"

// Feed transports.
const (
	TransportHTTP = "http"
	TransportCurl = "curl"
)

// Options for the CLI - flat structure with toml mapping.
// Flag names are derived from field names, e.g. FeedURL -> --feed-url.
type Options struct {
	Config string

	// Feed settings
	FeedURL            string        `toml:"feed.url" env:"FEED_URL"`
	FeedTransport      string        `toml:"feed.transport" env:"FEED_TRANSPORT"`
	FeedTimeout        time.Duration `toml:"feed.timeout" env:"FEED_TIMEOUT"`
	FeedRetries        int           `toml:"feed.retries" env:"FEED_RETRIES"`
	FeedEmptyPollDelay time.Duration `toml:"feed.empty_poll_delay" env:"FEED_EMPTY_POLL_DELAY"`

	// Locale and schedule settings
	LocaleTimezone     string        `toml:"locale.timezone" env:"LOCALE_TIMEZONE"`
	ScheduleNotifyLead time.Duration `toml:"schedule.notify_lead" env:"SCHEDULE_NOTIFY_LEAD"`

	// LED settings
	LEDDriver     string  `toml:"led.driver" env:"LED_DRIVER"`
	LEDBrightness float64 `toml:"led.brightness" env:"LED_BRIGHTNESS"`
	LEDPixels     int     `toml:"led.pixels" env:"LED_PIXELS"`
	OPCServer     string  `toml:"led.opc_server" env:"LED_OPC_SERVER"`

	// Integrations
	MetricsTextfile string `toml:"metrics.textfile" env:"METRICS_TEXTFILE"`
	MQTTBroker      string `toml:"mqtt.broker" env:"MQTT_BROKER"`
	MQTTTopic       string `toml:"mqtt.topic" env:"MQTT_TOPIC"`
	MQTTClientID    string `toml:"mqtt.client_id" env:"MQTT_CLIENT_ID"`
	NATSServer      string `toml:"nats.server" env:"NATS_SERVER"`

	// Logging settings
	LoggingLevel       string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat      string `toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingFile        string `toml:"logging.file" env:"LOGGING_FILE"`
	LoggingScheduler   string `toml:"logging.scheduler" env:"LOGGING_SCHEDULER"`
	LoggingAnimation   string `toml:"logging.animation" env:"LOGGING_ANIMATION"`
	LoggingFeed        string `toml:"logging.feed" env:"LOGGING_FEED"`
	LoggingLED         string `toml:"logging.led" env:"LOGGING_LED"`
	LoggingCoordinator string `toml:"logging.coordinator" env:"LOGGING_COORDINATOR"`
	LoggingMQTT        string `toml:"logging.mqtt" env:"LOGGING_MQTT"`
	LoggingNATS        string `toml:"logging.nats" env:"LOGGING_NATS"`
	LoggingMetrics     string `toml:"logging.metrics" env:"LOGGING_METRICS"`
}

// AddFlags registers every option on fs with its default value.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Config, "config", "c", DefaultConfigFile, "Path to configuration file")

	fs.StringVar(&o.FeedURL, "feed-url", feed.DefaultURL, "Spot the Station RSS feed URL")
	fs.StringVar(&o.FeedTransport, "feed-transport", TransportHTTP, "Feed transport (http, curl)")
	fs.DurationVar(&o.FeedTimeout, "feed-timeout", 30*time.Second, "HTTP timeout for one feed fetch")
	fs.IntVar(&o.FeedRetries, "feed-retries", 0, "Retries for a failed fetch before giving up (0 = fail on first error)")
	fs.DurationVar(&o.FeedEmptyPollDelay, "feed-empty-poll-delay", scheduler.DefaultEmptyPollDelay, "Delay before re-polling a feed with no upcoming sightings")

	fs.StringVar(&o.LocaleTimezone, "locale-timezone", "America/Los_Angeles", "Timezone the feed times are published in")
	fs.DurationVar(&o.ScheduleNotifyLead, "schedule-notify-lead", scheduler.DefaultLead, "How long before a sighting the approach animation starts")

	fs.StringVar(&o.LEDDriver, "led-driver", led.DriverAuto, "LED driver (auto, blinkt, opc, memory)")
	fs.Float64Var(&o.LEDBrightness, "led-brightness", animation.DefaultBrightness, "Global LED brightness between 0 and 1")
	fs.IntVar(&o.LEDPixels, "led-pixels", led.DefaultPixels, "Number of pixels on the strip")
	fs.StringVar(&o.OPCServer, "opc-server", "", "Open Pixel Control server address (host:port)")

	fs.StringVar(&o.MetricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this node-exporter textfile")
	fs.StringVar(&o.MQTTBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	fs.StringVar(&o.MQTTTopic, "mqtt-topic", "iss-notify", "MQTT topic prefix")
	fs.StringVar(&o.MQTTClientID, "mqtt-client-id", "iss-notify", "MQTT client ID")
	fs.StringVar(&o.NATSServer, "nats-server", "", "NATS server URL, e.g. nats://localhost:4222")

	fs.StringVar(&o.LoggingLevel, "logging-level", "info", "Global logging level (debug, info, warn, error)")
	fs.StringVar(&o.LoggingFormat, "logging-format", "line", "Stdout logging format (line, text, json)")
	fs.StringVar(&o.LoggingFile, "logging-file", "iss-notify.log", "Append logs to this file (empty disables)")
	fs.StringVar(&o.LoggingScheduler, "logging-scheduler", "", "Scheduler logging level")
	fs.StringVar(&o.LoggingAnimation, "logging-animation", "", "Animation engine logging level")
	fs.StringVar(&o.LoggingFeed, "logging-feed", "", "Feed fetcher logging level")
	fs.StringVar(&o.LoggingLED, "logging-led", "", "LED driver logging level")
	fs.StringVar(&o.LoggingCoordinator, "logging-coordinator", "", "Coordinator logging level")
	fs.StringVar(&o.LoggingMQTT, "logging-mqtt", "", "MQTT publisher logging level")
	fs.StringVar(&o.LoggingNATS, "logging-nats", "", "NATS publisher logging level")
	fs.StringVar(&o.LoggingMetrics, "logging-metrics", "", "Metrics logging level")
}

// Load applies the config file and environment to o. Flags set on the
// command line win.
func (o *Options) Load(c *cobra.Command) error {
	if err := config.LoadConfig(o, c); err != nil {
		return err
	}
	return o.Validate()
}

// Validate reports every invalid option at once.
func (o *Options) Validate() error {
	var errs []error
	switch o.FeedTransport {
	case TransportHTTP, TransportCurl:
	default:
		errs = append(errs, fmt.Errorf("unknown feed transport %q", o.FeedTransport))
	}
	if o.FeedRetries < 0 {
		errs = append(errs, errors.New("feed retries must not be negative"))
	}
	if o.FeedEmptyPollDelay < 0 {
		errs = append(errs, errors.New("feed empty poll delay must not be negative"))
	}
	if o.ScheduleNotifyLead < 0 {
		errs = append(errs, errors.New("notify lead must not be negative"))
	}
	if o.LEDBrightness < 0 || o.LEDBrightness > 1 {
		errs = append(errs, fmt.Errorf("led brightness %v is outside [0,1]", o.LEDBrightness))
	}
	if o.LEDPixels <= 0 {
		errs = append(errs, fmt.Errorf("led pixels must be positive, got %d", o.LEDPixels))
	}
	if _, err := time.LoadLocation(o.LocaleTimezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", o.LocaleTimezone, err))
	}
	if _, err := logging.ParseLevel(o.LoggingLevel); err != nil {
		errs = append(errs, err)
	}
	for module, level := range o.LoggingConfig().Modules {
		if _, err := logging.ParseLevel(level); err != nil {
			errs = append(errs, fmt.Errorf("logging.%s: %w", module, err))
		}
	}
	return errors.Join(errs...)
}

// LoggingConfig builds the logging configuration. Empty module levels
// follow the global level.
func (o *Options) LoggingConfig() logging.Config {
	modules := map[string]string{}
	for module, level := range map[string]string{
		"scheduler":   o.LoggingScheduler,
		"animation":   o.LoggingAnimation,
		"feed":        o.LoggingFeed,
		"led":         o.LoggingLED,
		"coordinator": o.LoggingCoordinator,
		"mqtt":        o.LoggingMQTT,
		"nats":        o.LoggingNATS,
		"metrics":     o.LoggingMetrics,
	} {
		if level != "" {
			modules[module] = level
		}
	}
	return logging.Config{
		Level:   o.LoggingLevel,
		Format:  o.LoggingFormat,
		File:    o.LoggingFile,
		Modules: modules,
	}
}

// Parser returns a sightings parser for the configured timezone.
func (o *Options) Parser() (*sighting.Parser, error) {
	loc, err := time.LoadLocation(o.LocaleTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", o.LocaleTimezone, err)
	}
	return sighting.NewParser(loc), nil
}

// Fetcher builds the configured feed transport, wrapped in retries when enabled.
func (o *Options) Fetcher(logger *slog.Logger) feed.Fetcher {
	var f feed.Fetcher
	if o.FeedTransport == TransportCurl {
		f = feed.NewCurlFetcher(o.FeedURL, logger)
	} else {
		f = feed.NewHTTPFetcher(o.FeedURL, o.FeedTimeout, logger)
	}
	if o.FeedRetries > 0 {
		f = feed.NewRetryFetcher(f, o.FeedRetries, logger)
	}
	return f
}

// LEDOptions returns the LED driver selection.
func (o *Options) LEDOptions() led.Options {
	return led.Options{
		Driver:    o.LEDDriver,
		Pixels:    o.LEDPixels,
		OPCServer: o.OPCServer,
	}
}
