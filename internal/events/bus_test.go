package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan NotificationSentEvent, 1)

	unsub := bus.Subscribe(func(e NotificationSentEvent) {
		received <- e
	})
	defer unsub()

	when := time.Date(2025, 1, 27, 19, 30, 0, 0, time.UTC)
	bus.Publish(NotificationSentEvent{EventTime: when, SentAt: when.Add(-5 * time.Minute)})

	got := <-received
	if !got.EventTime.Equal(when) {
		t.Errorf("Expected event_time %v, got %v", when, got.EventTime)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan PollCompletedEvent, 1)
	received2 := make(chan PollCompletedEvent, 1)

	unsub1 := bus.Subscribe(func(e PollCompletedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e PollCompletedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(PollCompletedEvent{Sightings: 3, Upcoming: 2})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan PollFailedEvent, 1)

	unsub := bus.Subscribe(func(e PollFailedEvent) {
		received <- e
	})

	bus.Publish(PollFailedEvent{Stage: "fetch"})
	<-received

	unsub()

	bus.Publish(PollFailedEvent{Stage: "parse"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	engineReceived := make(chan bool, 1)
	schedulerReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ EngineStateChangedEvent) {
		engineReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ SchedulerStateChangedEvent) {
		schedulerReceived <- true
	})
	defer unsub2()

	bus.Publish(EngineStateChangedEvent{From: "idle", To: "approaching"})
	<-engineReceived

	select {
	case <-schedulerReceived:
		t.Fatal("Scheduler subscriber should NOT have received EngineStateChangedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}

	bus.Publish(SchedulerStateChangedEvent{From: "polling", To: "waiting"})
	<-schedulerReceived

	select {
	case <-engineReceived:
		t.Fatal("Engine subscriber should NOT have received SchedulerStateChangedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ SightingSkippedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(SightingSkippedEvent{When: time.Now()})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"PollCompleted", PollCompletedEvent{Sightings: 1}},
		{"PollFailed", PollFailedEvent{Stage: "fetch"}},
		{"SightingSkipped", SightingSkippedEvent{When: time.Now()}},
		{"NotificationScheduled", NotificationScheduledEvent{Wait: time.Minute}},
		{"NotificationSent", NotificationSentEvent{EventTime: time.Now()}},
		{"SchedulerStateChanged", SchedulerStateChangedEvent{To: "waiting"}},
		{"EngineStateChanged", EngineStateChangedEvent{To: "shutdown"}},
		{"Terminated", TerminatedEvent{Component: "scheduler"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case PollCompletedEvent:
				unsub = bus.Subscribe(func(e PollCompletedEvent) { received <- e })
			case PollFailedEvent:
				unsub = bus.Subscribe(func(e PollFailedEvent) { received <- e })
			case SightingSkippedEvent:
				unsub = bus.Subscribe(func(e SightingSkippedEvent) { received <- e })
			case NotificationScheduledEvent:
				unsub = bus.Subscribe(func(e NotificationScheduledEvent) { received <- e })
			case NotificationSentEvent:
				unsub = bus.Subscribe(func(e NotificationSentEvent) { received <- e })
			case SchedulerStateChangedEvent:
				unsub = bus.Subscribe(func(e SchedulerStateChangedEvent) { received <- e })
			case EngineStateChangedEvent:
				unsub = bus.Subscribe(func(e EngineStateChangedEvent) { received <- e })
			case TerminatedEvent:
				unsub = bus.Subscribe(func(e TerminatedEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestBus_NilPublish(_ *testing.T) {
	var bus *Bus
	bus.Publish(TerminatedEvent{Component: "engine"})
}

func TestBus_UnknownHandler(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestEventJSONSerialization(t *testing.T) {
	when := time.Date(2025, 1, 27, 19, 30, 0, 0, time.UTC)

	data, err := json.Marshal(NotificationScheduledEvent{
		EventTime:       when,
		Wait:            100 * time.Second,
		DurationMinutes: 4,
		MaxElevation:    45,
		Approach:        "10° above NW",
		Departure:       "10° above SE",
	})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var result map[string]any
	if unmarshalErr := json.Unmarshal(data, &result); unmarshalErr != nil {
		t.Fatalf("Failed to unmarshal: %v", unmarshalErr)
	}

	if result["event_time"] != "2025-01-27T19:30:00Z" {
		t.Errorf("event_time = %v", result["event_time"])
	}
	if result["max_elevation"] != float64(45) {
		t.Errorf("max_elevation = %v", result["max_elevation"])
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[TerminatedEvent](bus, ch)
	defer unsub()

	bus.Publish(TerminatedEvent{Component: "scheduler"})

	received := <-ch
	ev, ok := received.(TerminatedEvent)
	if !ok {
		t.Fatalf("Expected TerminatedEvent, got %T", received)
	}
	if ev.Component != "scheduler" {
		t.Errorf("Expected component scheduler, got %s", ev.Component)
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any) // No buffer

	unsub := SubscribeToChannel[PollCompletedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(PollCompletedEvent{})
		done <- true
	}()

	<-done // Should complete without blocking
}

func TestPublishersCoverEveryType(t *testing.T) {
	for typ := TypePollCompleted; typ <= TypeTerminated; typ++ {
		if _, ok := publishers[typ]; !ok {
			t.Errorf("no publisher for event type %d", typ)
		}
	}
}

func TestOnNilBus(_ *testing.T) {
	var bus *Bus
	unsub := On(bus, func(PollFailedEvent) {})
	unsub()
}

func TestTrySend(t *testing.T) {
	ch := make(chan any, 1)
	if !trySend(ch, 1) {
		t.Error("first send should fit the buffer")
	}
	if trySend(ch, 2) {
		t.Error("second send should be dropped")
	}
}
