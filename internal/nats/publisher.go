package nats

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/iss-notify/internal/events"
)

// Publisher forwards notification and state events to NATS.
// Gracefully degrades when NATS is unavailable.
type Publisher struct {
	url       string
	conn      *nats.Conn
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		url:    url,
		logger: logger.With("component", "nats-publisher"),
	}
}

// Connect establishes a connection to the NATS server. Reconnects are
// handled by the client; messages published while offline are dropped.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := []nats.Option{
		nats.Name("iss-notify"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.mu.Lock()
			p.connected = false
			p.mu.Unlock()
			if err != nil {
				p.logger.Warn("NATS disconnected", "error", err)
			} else {
				p.logger.Debug("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			p.mu.Lock()
			p.connected = true
			p.mu.Unlock()
			p.logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(p.url, opts...)
	if err != nil {
		p.logger.Warn("Failed to connect to NATS, running in offline mode", "error", err)
		return err
	}

	p.conn = conn
	p.connected = true
	p.logger.Info("Connected to NATS", "url", p.url)
	return nil
}

// Subscribe wires the publisher to the bus. The returned function unsubscribes.
func (p *Publisher) Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.NotificationScheduledEvent) {
			p.PublishNotification(NotificationMessage{
				Event:           EventScheduled,
				EventTime:       e.EventTime.Format(time.RFC3339),
				Timestamp:       time.Now().Format(time.RFC3339),
				WaitSeconds:     e.Wait.Seconds(),
				DurationMinutes: e.DurationMinutes,
				MaxElevation:    e.MaxElevation,
				Approach:        e.Approach,
				Departure:       e.Departure,
			})
		}),
		bus.Subscribe(func(e events.NotificationSentEvent) {
			p.PublishNotification(NotificationMessage{
				Event:     EventSent,
				EventTime: e.EventTime.Format(time.RFC3339),
				Timestamp: e.SentAt.Format(time.RFC3339),
			})
		}),
		bus.Subscribe(func(e events.SchedulerStateChangedEvent) {
			p.PublishState(StateMessage{
				Component: "scheduler",
				From:      e.From,
				To:        e.To,
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}),
		bus.Subscribe(func(e events.EngineStateChangedEvent) {
			p.PublishState(StateMessage{
				Component: "animation",
				From:      e.From,
				To:        e.To,
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// PublishNotification publishes a notification message.
// No-op if not connected (graceful degradation).
func (p *Publisher) PublishNotification(m NotificationMessage) {
	data, err := m.Marshal()
	if err != nil {
		p.logger.Warn("Failed to marshal notification", "error", err)
		return
	}
	p.publish(SubjectNotification(m.Event), data)
}

// PublishState publishes a state change message.
// No-op if not connected (graceful degradation).
func (p *Publisher) PublishState(m StateMessage) {
	data, err := m.Marshal()
	if err != nil {
		p.logger.Warn("Failed to marshal state", "error", err)
		return
	}
	p.publish(SubjectState(m.Component), data)
}

func (p *Publisher) publish(subject string, data []byte) {
	p.mu.RLock()
	conn := p.conn
	connected := p.connected
	p.mu.RUnlock()

	if conn == nil || !connected {
		return
	}

	if err := conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish", "subject", subject, "error", err)
	}
}

// IsConnected returns true if connected to NATS.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected && p.conn != nil
}

// Close drains pending messages and closes the NATS connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		if err := p.conn.Flush(); err != nil {
			p.logger.Debug("NATS flush failed", "error", err)
		}
		p.conn.Close()
		p.conn = nil
	}

	p.connected = false
	p.logger.Debug("NATS publisher closed")
}
