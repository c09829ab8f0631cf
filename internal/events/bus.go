package events

import (
	"github.com/kelindar/event"
)

// Bus fans notifier events out to subscribers. Delivery is asynchronous, so a
// slow subscriber never holds up the scheduler or the animation engine.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// publishers maps an event type id to a publish func for its concrete type.
var publishers = map[uint32]func(*event.Dispatcher, Event){
	TypePollCompleted:         publishAs[PollCompletedEvent],
	TypePollFailed:            publishAs[PollFailedEvent],
	TypeSightingSkipped:       publishAs[SightingSkippedEvent],
	TypeNotificationScheduled: publishAs[NotificationScheduledEvent],
	TypeNotificationSent:      publishAs[NotificationSentEvent],
	TypeSchedulerStateChanged: publishAs[SchedulerStateChangedEvent],
	TypeEngineStateChanged:    publishAs[EngineStateChangedEvent],
	TypeTerminated:            publishAs[TerminatedEvent],
}

func publishAs[T Event](d *event.Dispatcher, ev Event) {
	if e, ok := ev.(T); ok {
		event.Publish(d, e)
	}
}

// Publish sends ev to every subscriber of its type. A nil bus drops it.
func (b *Bus) Publish(ev Event) {
	if b == nil || ev == nil {
		return
	}
	if publish, ok := publishers[ev.Type()]; ok {
		publish(b.dispatcher, ev)
	}
}

// On registers fn for events of type T and returns the unsubscribe func.
func On[T Event](b *Bus, fn func(T)) func() {
	if b == nil {
		return func() {}
	}
	return event.Subscribe(b.dispatcher, fn)
}

// Subscribe registers handler, whose parameter type selects the events it
// gets:
//
//	unsub := bus.Subscribe(func(e NotificationSentEvent) { ... })
//
// Handlers of any other shape are ignored.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(PollCompletedEvent):
		return On(b, h)
	case func(PollFailedEvent):
		return On(b, h)
	case func(SightingSkippedEvent):
		return On(b, h)
	case func(NotificationScheduledEvent):
		return On(b, h)
	case func(NotificationSentEvent):
		return On(b, h)
	case func(SchedulerStateChangedEvent):
		return On(b, h)
	case func(EngineStateChangedEvent):
		return On(b, h)
	case func(TerminatedEvent):
		return On(b, h)
	}
	return func() {}
}
