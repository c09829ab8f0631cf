package animation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	"github.com/smazurov/iss-notify/internal/events"
	"github.com/smazurov/iss-notify/internal/led"
)

// Engine timing and appearance.
const (
	PollInterval      = 1000 * time.Millisecond
	FrameDelay        = 10 * time.Millisecond
	HueStep           = 3
	DefaultBrightness = 0.05
)

// Engine states.
const (
	StateIdle        = "idle"
	StateApproaching = "approaching"
	StateShutdown    = "shutdown"
)

const (
	eventApproach  = "approach"
	eventSettle    = "settle"
	eventTerminate = "terminate"
)

// Options configures an Engine.
type Options struct {
	Device     led.Device
	Commands   <-chan Command
	Clock      clock.Clock
	Brightness float64
	Bus        *events.Bus
	Logger     *slog.Logger
}

// Engine owns the LED device and turns commands into animations. Between
// commands it shows a heartbeat on the first pixel.
type Engine struct {
	device     led.Device
	commands   <-chan Command
	clock      clock.Clock
	brightness float64
	bus        *events.Bus
	logger     *slog.Logger

	fsm       *fsm.FSM
	heartbeat uint8
	pending   []Command
}

// New creates an engine. Device and Commands are required.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := &Engine{
		device:     opts.Device,
		commands:   opts.Commands,
		clock:      opts.Clock,
		brightness: opts.Brightness,
		bus:        opts.Bus,
		logger:     opts.Logger,
	}

	e.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventApproach, Src: []string{StateIdle}, Dst: StateApproaching},
			{Name: eventSettle, Src: []string{StateApproaching}, Dst: StateIdle},
			{Name: eventTerminate, Src: []string{StateIdle, StateApproaching}, Dst: StateShutdown},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, ev *fsm.Event) {
				e.logger.Debug("Engine state changed", "from", ev.Src, "to", ev.Dst)
				e.bus.Publish(events.EngineStateChangedEvent{From: ev.Src, To: ev.Dst})
			},
		},
	)
	return e
}

// State returns the current engine state.
func (e *Engine) State() string {
	return e.fsm.Current()
}

// Run processes commands until Terminate. It returns an error only when the
// device fails to show a frame. A closed command channel is a programming
// error and panics.
func (e *Engine) Run() error {
	e.device.SetBrightness(e.brightness)

	for {
		cmd, ok := e.next()
		if !ok {
			if err := e.showHeartbeat(); err != nil {
				return err
			}
			continue
		}

		switch c := cmd.(type) {
		case ApproachingUntil:
			if err := e.approach(c.Until); err != nil {
				return err
			}
		case Terminate:
			return e.terminate()
		}
	}
}

// next returns a held command or waits up to PollInterval for a new one.
func (e *Engine) next() (Command, bool) {
	if len(e.pending) > 0 {
		cmd := e.pending[0]
		e.pending = e.pending[1:]
		return cmd, true
	}

	timer := e.clock.NewTimer(PollInterval)
	defer timer.Stop()

	select {
	case cmd, ok := <-e.commands:
		if !ok {
			panic("animation: command channel closed")
		}
		return cmd, true
	case <-timer.C():
		return nil, false
	}
}

// peek drains commands that arrived during an animation. It reports true when
// one of them is Terminate; everything else is held in arrival order.
func (e *Engine) peek() bool {
	for {
		select {
		case cmd, ok := <-e.commands:
			if !ok {
				panic("animation: command channel closed")
			}
			if _, stop := cmd.(Terminate); stop {
				return true
			}
			e.pending = append(e.pending, cmd)
		default:
			return false
		}
	}
}

func (e *Engine) showHeartbeat() error {
	e.heartbeat = 255 - e.heartbeat
	e.device.SetAll(0, 0, 0)
	e.device.SetPixel(0, 0, e.heartbeat, 0)
	return e.show("heartbeat")
}

func (e *Engine) approach(until time.Time) error {
	e.logger.Info("ISS approaching", "until", until)
	e.transition(eventApproach)

	pixels := e.device.NumPixels()
	for e.clock.Now().Before(until) {
		for hue := 0; hue < 360; hue += HueStep {
			for i := range pixels {
				r, g, b := RainbowColor(hue, i)
				e.device.SetPixel(i, r, g, b)
			}
			if err := e.show("approach"); err != nil {
				return err
			}
			e.clock.Sleep(FrameDelay)
		}

		if e.peek() {
			e.pending = append([]Command{Terminate{}}, e.pending...)
			return nil
		}
	}

	e.device.Clear()
	if err := e.show("approach"); err != nil {
		return err
	}
	e.transition(eventSettle)
	return nil
}

func (e *Engine) terminate() error {
	e.logger.Warn("Engine received terminate")
	e.transition(eventTerminate)

	e.device.SetAll(0, 0, 0)
	e.device.SetPixel(0, 255, 0, 0)
	if err := e.show("terminate"); err != nil {
		return err
	}
	e.bus.Publish(events.TerminatedEvent{Component: "animation", Timestamp: e.clock.Now()})
	return nil
}

func (e *Engine) show(frame string) error {
	if err := e.device.Show(); err != nil {
		e.logger.Error("Failed to show frame", "frame", frame, "error", err)
		return fmt.Errorf("failed to show %s frame: %w", frame, err)
	}
	return nil
}

func (e *Engine) transition(event string) {
	if err := e.fsm.Event(context.Background(), event); isRealError(err) {
		e.logger.Warn("Invalid engine transition", "event", event, "state", e.fsm.Current(), "error", err)
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
