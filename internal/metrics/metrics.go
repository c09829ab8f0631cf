// Package metrics records scheduler and engine activity as Prometheus metrics
// and writes them to a node-exporter textfile.
package metrics

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/iss-notify/internal/events"
)

const namespace = "issnotify"

// Recorder owns a private registry fed from the event bus.
type Recorder struct {
	registry *prometheus.Registry
	path     string
	logger   *slog.Logger
	mu       sync.Mutex

	polls         prometheus.Counter
	pollFailures  *prometheus.CounterVec
	lastPoll      prometheus.Gauge
	upcoming      prometheus.Gauge
	skipped       prometheus.Counter
	nextSighting  prometheus.Gauge
	notifications prometheus.Counter
	lastSent      prometheus.Gauge
	engineState   *prometheus.GaugeVec
}

// New creates a recorder. When path is empty metrics are only kept in memory.
func New(path string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		path:     path,
		logger:   logger,

		polls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "polls_total",
			Help:      "Feed polls that were fetched and parsed",
		}),
		pollFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "poll_failures_total",
			Help:      "Feed polls that failed, by stage",
		}, []string{"stage"}),
		lastPoll: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "last_poll_timestamp_seconds",
			Help:      "Unix time of the last successful poll",
		}),
		upcoming: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "upcoming_sightings",
			Help:      "Sightings still ahead at the last poll",
		}),
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "skipped_sightings_total",
			Help:      "Sightings skipped because they already started",
		}),
		nextSighting: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "next_sighting_timestamp_seconds",
			Help:      "Unix time of the sighting currently waited for",
		}),
		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "notifications_total",
			Help:      "Approach notifications sent to the animation engine",
		}),
		lastSent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "last_notification_timestamp_seconds",
			Help:      "Unix time the last notification was sent",
		}),
		engineState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "animation",
			Name:      "state",
			Help:      "Current animation engine state (1 for the active state)",
		}, []string{"state"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Subscribe wires the recorder to the bus. The returned function unsubscribes.
func (r *Recorder) Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(r.onPollCompleted),
		bus.Subscribe(r.onPollFailed),
		bus.Subscribe(r.onSightingSkipped),
		bus.Subscribe(r.onNotificationScheduled),
		bus.Subscribe(r.onNotificationSent),
		bus.Subscribe(r.onEngineStateChanged),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

func (r *Recorder) onPollCompleted(e events.PollCompletedEvent) {
	r.update(func() {
		r.polls.Inc()
		r.upcoming.Set(float64(e.Upcoming))
		r.lastPoll.Set(float64(e.Timestamp.Unix()))
	})
}

func (r *Recorder) onPollFailed(e events.PollFailedEvent) {
	r.update(func() {
		r.pollFailures.WithLabelValues(e.Stage).Inc()
	})
}

func (r *Recorder) onSightingSkipped(events.SightingSkippedEvent) {
	r.update(r.skipped.Inc)
}

func (r *Recorder) onNotificationScheduled(e events.NotificationScheduledEvent) {
	r.update(func() {
		r.nextSighting.Set(float64(e.EventTime.Unix()))
	})
}

func (r *Recorder) onNotificationSent(e events.NotificationSentEvent) {
	r.update(func() {
		r.notifications.Inc()
		r.lastSent.Set(float64(e.SentAt.Unix()))
	})
}

func (r *Recorder) onEngineStateChanged(e events.EngineStateChangedEvent) {
	r.update(func() {
		r.engineState.Reset()
		r.engineState.WithLabelValues(e.To).Set(1)
	})
}

// update applies a change and rewrites the textfile so the file always
// reflects a consistent snapshot.
func (r *Recorder) update(apply func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apply()
	if err := r.write(); err != nil {
		r.logger.Warn("Failed to write metrics textfile", "path", r.path, "error", err)
	}
}

// Write flushes the current metrics to the textfile.
func (r *Recorder) Write() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write()
}

func (r *Recorder) write() error {
	if r.path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(r.path, r.registry)
}
