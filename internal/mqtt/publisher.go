// Package mqtt forwards notification events from the event bus to an MQTT
// broker so home automation can react to upcoming ISS passes.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/smazurov/iss-notify/internal/events"
)

// Defaults for optional Options fields.
const (
	DefaultTopic     = "iss-notify"
	DefaultClientID  = "iss-notify"
	DefaultQueueSize = 16

	reasonNoSubscribers = 16
)

// Options configures a Publisher.
type Options struct {
	Broker    string // e.g. tcp://homeassistant.local:1883
	Topic     string // prefix, messages go to <topic>/scheduled and <topic>/sent
	ClientID  string
	QoS       byte
	QueueSize int
	Logger    *slog.Logger
}

// connection is the part of autopaho.ConnectionManager the publish loop uses.
type connection interface {
	AwaitConnection(ctx context.Context) error
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
}

// Publisher queues bus events and publishes them as JSON.
type Publisher struct {
	opts   Options
	server *url.URL
	queue  chan *paho.Publish
	logger *slog.Logger

	mu     sync.Mutex
	cm     *autopaho.ConnectionManager
	cancel context.CancelFunc
	done   chan struct{}
}

// New validates the options and creates an unconnected publisher.
func New(opts Options) (*Publisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	server, err := url.Parse(opts.Broker)
	if err != nil {
		return nil, fmt.Errorf("failed to parse broker URL: %w", err)
	}
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.ClientID == "" {
		opts.ClientID = DefaultClientID
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		opts:   opts,
		server: server,
		queue:  make(chan *paho.Publish, opts.QueueSize),
		logger: logger,
	}, nil
}

// Start connects to the broker in the background and begins publishing.
// Connection failures are retried by autopaho; events are queued meanwhile.
func (p *Publisher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{p.server},
		KeepAlive:                     60,
		CleanStartOnInitialConnection: false,
		SessionExpiryInterval:         60,
		ReconnectBackoff:              autopaho.NewConstantBackoff(5 * time.Second),
		OnConnectionUp: func(*autopaho.ConnectionManager, *paho.Connack) {
			p.logger.Info("MQTT connection up", "broker", p.server.String())
		},
		OnConnectError: func(err error) {
			p.logger.Warn("MQTT connection attempt failed", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: p.opts.ClientID,
			OnClientError: func(err error) {
				p.logger.Warn("MQTT client error", "error", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				p.logger.Warn("MQTT server requested disconnect", "reason_code", d.ReasonCode)
			},
		},
	}

	cm, err := autopaho.NewConnection(ctx, cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create MQTT connection manager: %w", err)
	}

	p.mu.Lock()
	p.cm = cm
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		p.run(ctx, cm)
	}()
	return nil
}

// Stop ends the publish loop and disconnects from the broker.
func (p *Publisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	cm, cancel, done := p.cm, p.cancel, p.done
	p.cm = nil
	p.mu.Unlock()

	if cm == nil {
		return nil
	}
	err := cm.Disconnect(ctx)
	cancel()
	<-done
	if err != nil {
		return fmt.Errorf("failed to disconnect from MQTT broker: %w", err)
	}
	return nil
}

// Subscribe wires the publisher to the bus. The returned function unsubscribes.
func (p *Publisher) Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.NotificationScheduledEvent) { p.enqueue(e) }),
		bus.Subscribe(func(e events.NotificationSentEvent) { p.enqueue(e) }),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// enqueue drops the message when the queue is full so a dead broker
// never backs up the bus.
func (p *Publisher) enqueue(ev events.Event) {
	msg, err := p.message(ev)
	if err != nil {
		p.logger.Warn("Failed to build MQTT message", "error", err)
		return
	}
	select {
	case p.queue <- msg:
	default:
		p.logger.Warn("MQTT queue full, dropping message", "topic", msg.Topic)
	}
}

// message maps a bus event to its topic and JSON payload.
func (p *Publisher) message(ev events.Event) (*paho.Publish, error) {
	var suffix string
	retain := false
	switch ev.(type) {
	case events.NotificationScheduledEvent:
		suffix = "scheduled"
		retain = true
	case events.NotificationSentEvent:
		suffix = "sent"
	default:
		return nil, fmt.Errorf("unsupported event type %T", ev)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &paho.Publish{
		QoS:     p.opts.QoS,
		Topic:   p.opts.Topic + "/" + suffix,
		Payload: payload,
		Retain:  retain,
	}, nil
}

func (p *Publisher) run(ctx context.Context, conn connection) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			if err := conn.AwaitConnection(ctx); err != nil {
				p.logger.Debug("MQTT publisher exiting", "error", err)
				return
			}
			p.publish(ctx, conn, msg)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, conn connection, msg *paho.Publish) {
	pr, err := conn.Publish(ctx, msg)
	switch {
	case err != nil:
		p.logger.Warn("Failed to publish MQTT message", "topic", msg.Topic, "error", err)
	case pr != nil && pr.ReasonCode != 0 && pr.ReasonCode != reasonNoSubscribers:
		p.logger.Warn("MQTT broker rejected message", "topic", msg.Topic, "reason_code", pr.ReasonCode)
	default:
		p.logger.Debug("Published MQTT message", "topic", msg.Topic)
	}
}
