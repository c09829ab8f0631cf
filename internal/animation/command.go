package animation

import "time"

// Command is an instruction for the engine. The set is closed: only the
// types in this package implement it.
type Command interface {
	command()
}

// ApproachingUntil asks the engine to play the approach animation until the
// given instant, usually the start of the sighting.
type ApproachingUntil struct {
	Until time.Time
}

func (ApproachingUntil) command() {}

// Terminate asks the engine to show the terminal frame and stop.
type Terminate struct{}

func (Terminate) command() {}
