// Package scheduler polls the sightings feed and tells the animation engine
// when the ISS is about to pass overhead.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	"github.com/smazurov/iss-notify/internal/animation"
	"github.com/smazurov/iss-notify/internal/events"
	"github.com/smazurov/iss-notify/internal/feed"
	"github.com/smazurov/iss-notify/internal/sighting"
)

// Defaults for Options.
const (
	DefaultLead           = 300 * time.Second
	DefaultEmptyPollDelay = 10 * time.Minute
)

var errFetchCancelled = errors.New("feed fetch cancelled")

// Scheduler states.
const (
	StatePolling    = "polling"
	StateWaiting    = "waiting"
	StateNotifying  = "notifying"
	StateTerminated = "terminated"
)

const (
	eventPolled    = "polled"
	eventDue       = "due"
	eventSent      = "sent"
	eventExhausted = "exhausted"
	eventStop      = "stop"
)

// Options configures a Scheduler.
type Options struct {
	Fetcher  feed.Fetcher
	Parser   *sighting.Parser
	Commands chan<- animation.Command
	Clock    clock.Clock

	// Lead is how long before a sighting the approach animation starts.
	Lead time.Duration
	// EmptyPollDelay is the pause before re-polling when a cycle found
	// nothing new to notify. Zero re-polls immediately.
	EmptyPollDelay time.Duration

	Bus    *events.Bus
	Logger *slog.Logger
}

// Scheduler runs the poll, wait and notify loop.
type Scheduler struct {
	fetcher        feed.Fetcher
	parser         *sighting.Parser
	commands       chan<- animation.Command
	clock          clock.Clock
	lead           time.Duration
	emptyPollDelay time.Duration
	bus            *events.Bus
	logger         *slog.Logger

	fsm          *fsm.FSM
	lastNotified time.Time
}

// New creates a scheduler. Fetcher, Parser and Commands are required.
func New(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Lead < 0 {
		opts.Lead = 0
	}

	s := &Scheduler{
		fetcher:        opts.Fetcher,
		parser:         opts.Parser,
		commands:       opts.Commands,
		clock:          opts.Clock,
		lead:           opts.Lead,
		emptyPollDelay: opts.EmptyPollDelay,
		bus:            opts.Bus,
		logger:         opts.Logger,
	}

	s.fsm = fsm.NewFSM(
		StatePolling,
		fsm.Events{
			{Name: eventPolled, Src: []string{StatePolling}, Dst: StateWaiting},
			{Name: eventDue, Src: []string{StateWaiting}, Dst: StateNotifying},
			{Name: eventSent, Src: []string{StateNotifying}, Dst: StateWaiting},
			{Name: eventExhausted, Src: []string{StateWaiting}, Dst: StatePolling},
			{Name: eventStop, Src: []string{StatePolling, StateWaiting, StateNotifying}, Dst: StateTerminated},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, ev *fsm.Event) {
				s.logger.Debug("Scheduler state changed", "from", ev.Src, "to", ev.Dst)
				s.bus.Publish(events.SchedulerStateChangedEvent{From: ev.Src, To: ev.Dst})
			},
		},
	)
	return s
}

// State returns the current scheduler state.
func (s *Scheduler) State() string {
	return s.fsm.Current()
}

// NotifyWait returns how long to wait before notifying about an event at
// eventTime. It reports false when the event already started.
func NotifyWait(eventTime, now time.Time, lead time.Duration) (time.Duration, bool) {
	untilEvent := eventTime.Sub(now)
	if untilEvent < 0 {
		return 0, false
	}
	return max(untilEvent-lead, 0), true
}

// Run polls and notifies until interrupt fires, then sends Terminate and
// returns nil. Fetch and parse failures are returned as errors. ctx bounds
// fetching only: a fetch cut short by ctx is handled like the interrupt.
func (s *Scheduler) Run(ctx context.Context, interrupt <-chan struct{}) error {
	for {
		if s.interrupted(interrupt) {
			return s.stop()
		}

		sightings, err := s.poll(ctx)
		if errors.Is(err, errFetchCancelled) {
			return s.stop()
		}
		if err != nil {
			return err
		}
		s.transition(eventPolled)

		// Passes announced in an earlier cycle are listed until they start.
		// Ties within this cycle are all announced.
		notifiedBefore := s.lastNotified
		notified := 0
		for _, sg := range sightings {
			now := s.clock.Now()
			wait, upcoming := NotifyWait(sg.When, now, s.lead)
			if !upcoming {
				s.logger.Debug("Ignoring past sighting", "when", sg.When)
				s.bus.Publish(events.SightingSkippedEvent{When: sg.When})
				continue
			}
			if !sg.When.After(notifiedBefore) {
				s.logger.Debug("Sighting already notified", "when", sg.When)
				continue
			}

			s.logger.Info("Next sighting",
				"in", sg.When.Sub(now).Truncate(time.Second),
				"when", sg.When,
				"approach", sg.Approach.String(),
				"departure", sg.Departure.String(),
				"duration_minutes", sg.DurationMinutes,
				"max_elevation", sg.MaxElevation)

			if !s.sleep(wait, interrupt, func() {
				s.bus.Publish(events.NotificationScheduledEvent{
					EventTime:       sg.When,
					Wait:            wait,
					DurationMinutes: sg.DurationMinutes,
					MaxElevation:    sg.MaxElevation,
					Approach:        sg.Approach.String(),
					Departure:       sg.Departure.String(),
				})
			}) {
				return s.stop()
			}

			s.notify(sg.When)
			notified++
		}
		s.transition(eventExhausted)

		if notified == 0 && s.emptyPollDelay > 0 {
			s.logger.Info("No new sightings, delaying next poll", "delay", s.emptyPollDelay)
			if !s.sleep(s.emptyPollDelay, interrupt, nil) {
				return s.stop()
			}
		}
	}
}

func (s *Scheduler) poll(ctx context.Context) ([]sighting.Sighting, error) {
	s.logger.Info("Retrieving sightings feed")

	raw, err := s.fetcher.Fetch(ctx)
	if err != nil && ctx.Err() != nil {
		s.logger.Info("Feed fetch cancelled", "error", err)
		return nil, errFetchCancelled
	}
	if err != nil {
		s.logger.Error("Failed to fetch sightings feed", "error", err)
		s.bus.Publish(events.PollFailedEvent{Stage: "fetch", Error: err.Error(), Timestamp: s.clock.Now()})
		return nil, fmt.Errorf("failed to fetch sightings feed: %w", err)
	}

	sightings, err := s.parser.Parse(raw)
	if err != nil {
		s.logger.Error("Failed to parse sightings feed", "error", err)
		s.bus.Publish(events.PollFailedEvent{Stage: "parse", Error: err.Error(), Timestamp: s.clock.Now()})
		return nil, fmt.Errorf("failed to parse sightings feed: %w", err)
	}

	now := s.clock.Now()
	upcoming := 0
	for _, sg := range sightings {
		if !sg.When.Before(now) {
			upcoming++
		}
	}
	s.logger.Info("Sightings feed parsed", "sightings", len(sightings), "upcoming", upcoming)
	s.bus.Publish(events.PollCompletedEvent{Sightings: len(sightings), Upcoming: upcoming, Timestamp: now})
	return sightings, nil
}

// sleep waits for d or the interrupt and reports whether the full duration
// elapsed. A zero duration only checks the interrupt. armed runs once the
// wait is in place.
func (s *Scheduler) sleep(d time.Duration, interrupt <-chan struct{}, armed func()) bool {
	if d <= 0 {
		if armed != nil {
			armed()
		}
		return !s.interrupted(interrupt)
	}

	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	if armed != nil {
		armed()
	}

	select {
	case <-timer.C():
		return true
	case <-interrupt:
		return false
	}
}

func (s *Scheduler) notify(when time.Time) {
	s.transition(eventDue)
	s.logger.Info("Sending ISS notification", "when", when)
	s.commands <- animation.ApproachingUntil{Until: when}
	s.lastNotified = when
	s.bus.Publish(events.NotificationSentEvent{EventTime: when, SentAt: s.clock.Now()})
	s.transition(eventSent)
}

func (s *Scheduler) interrupted(interrupt <-chan struct{}) bool {
	select {
	case <-interrupt:
		return true
	default:
		return false
	}
}

func (s *Scheduler) stop() error {
	s.logger.Warn("Interrupt received, stopping scheduler")
	s.transition(eventStop)
	s.commands <- animation.Terminate{}
	s.bus.Publish(events.TerminatedEvent{Component: "scheduler", Timestamp: s.clock.Now()})
	return nil
}

func (s *Scheduler) transition(event string) {
	if err := s.fsm.Event(context.Background(), event); isRealError(err) {
		s.logger.Warn("Invalid scheduler transition", "event", event, "state", s.fsm.Current(), "error", err)
	}
}

func isRealError(err error) bool {
	if err == nil {
		return false
	}

	var noTransition fsm.NoTransitionError
	var canceled fsm.CanceledError
	if errors.As(err, &noTransition) || errors.As(err, &canceled) {
		return false
	}
	return true
}
