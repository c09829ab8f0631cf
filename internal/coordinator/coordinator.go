// Package coordinator wires the scheduler to the animation engine and owns
// their lifecycle.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/smazurov/iss-notify/internal/animation"
	"github.com/smazurov/iss-notify/internal/events"
	"github.com/smazurov/iss-notify/internal/feed"
	"github.com/smazurov/iss-notify/internal/led"
	"github.com/smazurov/iss-notify/internal/logging"
	"github.com/smazurov/iss-notify/internal/scheduler"
	"github.com/smazurov/iss-notify/internal/sighting"
	"github.com/smazurov/iss-notify/internal/systemd"
)

// DefaultCommandBuffer is the command channel capacity.
const DefaultCommandBuffer = 8

// ErrEngineStopped is returned when the animation engine exits while the
// scheduler is still running.
var ErrEngineStopped = errors.New("animation engine stopped before scheduler")

// Options configures a Coordinator.
type Options struct {
	Fetcher feed.Fetcher
	Parser  *sighting.Parser
	Device  led.Device
	Clock   clock.Clock

	Lead           time.Duration
	EmptyPollDelay time.Duration
	Brightness     float64
	CommandBuffer  int

	Bus    *events.Bus
	Logger *slog.Logger
}

// Coordinator runs the scheduler and the animation engine concurrently.
type Coordinator struct {
	commands  chan animation.Command
	interrupt chan struct{}
	engine    *animation.Engine
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// New validates opts and builds both run-loops.
func New(opts Options) (*Coordinator, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("coordinator: fetcher is required")
	}
	if opts.Parser == nil {
		return nil, errors.New("coordinator: parser is required")
	}
	if opts.Device == nil {
		return nil, errors.New("coordinator: device is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = DefaultCommandBuffer
	}
	// An injected logger is shared by both loops.
	var engineLogger, schedulerLogger *slog.Logger
	if opts.Logger != nil {
		engineLogger = opts.Logger.With("loop", "animation")
		schedulerLogger = opts.Logger.With("loop", "scheduler")
	} else {
		opts.Logger = logging.GetLogger("coordinator")
		engineLogger = logging.GetLogger("animation")
		schedulerLogger = logging.GetLogger("scheduler")
	}

	c := &Coordinator{
		commands:  make(chan animation.Command, opts.CommandBuffer),
		interrupt: make(chan struct{}, 1),
		logger:    opts.Logger,
	}

	c.engine = animation.New(animation.Options{
		Device:     opts.Device,
		Commands:   c.commands,
		Clock:      opts.Clock,
		Brightness: opts.Brightness,
		Bus:        opts.Bus,
		Logger:     engineLogger,
	})
	c.scheduler = scheduler.New(scheduler.Options{
		Fetcher:        opts.Fetcher,
		Parser:         opts.Parser,
		Commands:       c.commands,
		Clock:          opts.Clock,
		Lead:           opts.Lead,
		EmptyPollDelay: opts.EmptyPollDelay,
		Bus:            opts.Bus,
		Logger:         schedulerLogger,
	})
	return c, nil
}

// SchedulerState returns the scheduler state machine's current state.
func (c *Coordinator) SchedulerState() string {
	return c.scheduler.State()
}

// EngineState returns the animation engine's current state.
func (c *Coordinator) EngineState() string {
	return c.engine.State()
}

// Run starts both loops and blocks until they finish. Cancelling ctx
// interrupts the scheduler, which hands Terminate to the engine. A scheduler
// error is returned without waiting for the engine.
func (c *Coordinator) Run(ctx context.Context) error {
	engineDone := make(chan error, 1)
	go func() {
		engineDone <- c.engine.Run()
	}()

	schedulerDone := make(chan error, 1)
	go func() {
		// ctx aborts a fetch or retry backoff in flight; waits observe the
		// forwarded interrupt.
		schedulerDone <- c.scheduler.Run(ctx, c.interrupt)
	}()

	stop := make(chan struct{})
	defer close(stop)
	go c.forwardInterrupt(ctx, stop)

	c.logger.Info("Started scheduler and animation engine")
	systemd.Ready(c.logger)

	select {
	case err := <-schedulerDone:
		if err != nil {
			return fmt.Errorf("scheduler failed: %w", err)
		}
	case err := <-engineDone:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEngineStopped, err)
		}
		return ErrEngineStopped
	}

	if err := <-engineDone; err != nil {
		return fmt.Errorf("animation engine failed: %w", err)
	}
	c.logger.Info("Scheduler and animation engine stopped")
	return nil
}

// forwardInterrupt turns ctx cancellation into a single interrupt for the
// scheduler.
func (c *Coordinator) forwardInterrupt(ctx context.Context, stop <-chan struct{}) {
	select {
	case <-ctx.Done():
		c.logger.Warn("Interrupt received, shutting down")
		systemd.Stopping(c.logger)
		select {
		case c.interrupt <- struct{}{}:
		default:
		}
	case <-stop:
	}
}
