package animation

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// PixelSpacing is the hue offset in degrees between neighbouring pixels of the
// approach rainbow.
const PixelSpacing = 30

// RainbowColor returns the approach colour of pixel i at the given hue.
// Each channel is a sine wave phase shifted by 120 degrees.
func RainbowColor(hue, i int) (r, g, b uint8) {
	deg := float64(hue + PixelSpacing*i)
	return wave(deg), wave(deg + 120), wave(deg + 240)
}

func wave(deg float64) uint8 {
	return uint8(127 * (1 + math.Sin(deg*math.Pi/180)))
}

// WheelColor returns a fully saturated colour at the given hue for the
// diagnostic test pattern.
func WheelColor(hue float64) (r, g, b uint8) {
	return colorful.Hsv(math.Mod(hue, 360), 1, 1).RGB255()
}
