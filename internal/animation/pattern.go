package animation

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"github.com/smazurov/iss-notify/internal/led"
)

const patternFrameDelay = 20 * time.Millisecond

// TestPattern spreads a colour wheel across the strip and rotates it for the
// given number of frames, then clears the strip. It stops early when ctx is
// cancelled.
func TestPattern(ctx context.Context, dev led.Device, clk clock.Clock, frames int) error {
	pixels := dev.NumPixels()
	if pixels == 0 {
		return nil
	}

	for frame := range frames {
		if ctx.Err() != nil {
			break
		}
		offset := float64(frame * HueStep)
		for i := range pixels {
			r, g, b := WheelColor(offset + float64(i*360/pixels))
			dev.SetPixel(i, r, g, b)
		}
		if err := dev.Show(); err != nil {
			return err
		}
		clk.Sleep(patternFrameDelay)
	}

	dev.Clear()
	return dev.Show()
}
