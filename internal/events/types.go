package events

import "time"

// Event type constants for kelindar/event.
const (
	TypePollCompleted uint32 = iota + 1
	TypePollFailed
	TypeSightingSkipped
	TypeNotificationScheduled
	TypeNotificationSent
	TypeSchedulerStateChanged
	TypeEngineStateChanged
	TypeTerminated
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PollCompletedEvent is published after a feed was fetched and parsed.
type PollCompletedEvent struct {
	Sightings int       `json:"sightings"`
	Upcoming  int       `json:"upcoming"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for PollCompletedEvent.
func (e PollCompletedEvent) Type() uint32 { return TypePollCompleted }

// PollFailedEvent is published when fetching or parsing the feed failed.
type PollFailedEvent struct {
	Stage     string    `json:"stage"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for PollFailedEvent.
func (e PollFailedEvent) Type() uint32 { return TypePollFailed }

// SightingSkippedEvent is published for sightings that already started.
type SightingSkippedEvent struct {
	When time.Time `json:"when"`
}

// Type returns the event type identifier for SightingSkippedEvent.
func (e SightingSkippedEvent) Type() uint32 { return TypeSightingSkipped }

// NotificationScheduledEvent is published once the scheduler starts waiting
// for a sighting.
type NotificationScheduledEvent struct {
	EventTime       time.Time     `json:"event_time"`
	Wait            time.Duration `json:"wait"`
	DurationMinutes int           `json:"duration_minutes"`
	MaxElevation    int           `json:"max_elevation"`
	Approach        string        `json:"approach"`
	Departure       string        `json:"departure"`
}

// Type returns the event type identifier for NotificationScheduledEvent.
func (e NotificationScheduledEvent) Type() uint32 { return TypeNotificationScheduled }

// NotificationSentEvent is published after an approach command was handed to
// the animation engine.
type NotificationSentEvent struct {
	EventTime time.Time `json:"event_time"`
	SentAt    time.Time `json:"sent_at"`
}

// Type returns the event type identifier for NotificationSentEvent.
func (e NotificationSentEvent) Type() uint32 { return TypeNotificationSent }

// SchedulerStateChangedEvent tracks the scheduler state machine.
type SchedulerStateChangedEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Type returns the event type identifier for SchedulerStateChangedEvent.
func (e SchedulerStateChangedEvent) Type() uint32 { return TypeSchedulerStateChanged }

// EngineStateChangedEvent tracks the animation engine state machine.
type EngineStateChangedEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Type returns the event type identifier for EngineStateChangedEvent.
func (e EngineStateChangedEvent) Type() uint32 { return TypeEngineStateChanged }

// TerminatedEvent is published when a run-loop finishes its shutdown path.
type TerminatedEvent struct {
	Component string    `json:"component"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for TerminatedEvent.
func (e TerminatedEvent) Type() uint32 { return TypeTerminated }
