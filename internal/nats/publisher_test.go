package nats

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/smazurov/iss-notify/internal/events"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// runServer starts an embedded NATS server on a random port.
func runServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   server.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("Failed to create NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("NATS server failed to start within 5 seconds")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns
}

func subscribe(t *testing.T, url, subject string) chan *nats.Msg {
	t.Helper()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("Failed to connect subscriber: %v", err)
	}
	t.Cleanup(nc.Close)

	ch := make(chan *nats.Msg, 16)
	if _, err := nc.ChanSubscribe(subject, ch); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("Failed to flush subscription: %v", err)
	}
	return ch
}

func receive(t *testing.T, ch chan *nats.Msg) *nats.Msg {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestPublisherGracefulDegradation(t *testing.T) {
	// Create publisher with non-existent server
	publisher := NewPublisher("nats://127.0.0.1:59999", newTestLogger())

	// Connect should fail but not panic
	if err := publisher.Connect(); err == nil {
		t.Error("Connect should fail with non-existent server")
	}

	// These should be no-ops without panicking
	publisher.PublishNotification(NotificationMessage{Event: EventSent})
	publisher.PublishState(StateMessage{Component: "scheduler"})

	if publisher.IsConnected() {
		t.Error("Publisher should not be connected")
	}

	publisher.Close()
}

func TestPublisherForwardsBusEvents(t *testing.T) {
	ns := runServer(t)
	notifications := subscribe(t, ns.ClientURL(), SubjectNotificationsPrefix+".*")
	states := subscribe(t, ns.ClientURL(), SubjectState("animation"))

	publisher := NewPublisher(ns.ClientURL(), newTestLogger())
	if err := publisher.Connect(); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer publisher.Close()
	if !publisher.IsConnected() {
		t.Fatal("Publisher should be connected")
	}

	bus := events.New()
	defer publisher.Subscribe(bus)()

	when := time.Date(2025, 1, 3, 21, 45, 0, 0, time.UTC)
	bus.Publish(events.NotificationScheduledEvent{
		EventTime:    when,
		Wait:         5 * time.Minute,
		MaxElevation: 45,
		Approach:     "10° above NW",
	})

	msg := receive(t, notifications)
	if msg.Subject != "iss-notify.notifications.scheduled" {
		t.Errorf("subject = %q, want iss-notify.notifications.scheduled", msg.Subject)
	}
	got, err := UnmarshalNotification(msg.Data)
	if err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if got.EventTime != "2025-01-03T21:45:00Z" || got.WaitSeconds != 300 || got.MaxElevation != 45 || got.Approach != "10° above NW" {
		t.Errorf("unexpected notification %+v", got)
	}

	bus.Publish(events.NotificationSentEvent{EventTime: when, SentAt: when.Add(-5 * time.Minute)})
	msg = receive(t, notifications)
	sent, err := UnmarshalNotification(msg.Data)
	if err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if sent.Event != EventSent || sent.Timestamp != "2025-01-03T21:40:00Z" {
		t.Errorf("unexpected sent notification %+v", sent)
	}

	bus.Publish(events.EngineStateChangedEvent{From: "idle", To: "approaching"})
	msg = receive(t, states)
	state, err := UnmarshalState(msg.Data)
	if err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if state.Component != "animation" || state.From != "idle" || state.To != "approaching" {
		t.Errorf("unexpected state %+v", state)
	}
}

func TestSubjectFunctions(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{SubjectNotification(EventScheduled), "iss-notify.notifications.scheduled"},
		{SubjectNotification(EventSent), "iss-notify.notifications.sent"},
		{SubjectState("scheduler"), "iss-notify.state.scheduler"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestNotificationMessageOmitsEmptyFields(t *testing.T) {
	data, err := NotificationMessage{Event: EventSent, EventTime: "t", Timestamp: "s"}.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"event":"sent","event_time":"t","timestamp":"s"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
