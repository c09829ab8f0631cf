package led

import "fmt"

// DefaultPixels is the pixel count of a Pimoroni Blinkt strip.
const DefaultPixels = 8

// Device abstracts an addressable RGB strip. Pixel writes only touch the
// local frame buffer; Show pushes the buffer to the hardware.
type Device interface {
	// SetPixel sets one pixel's colour. Out of range indices are ignored.
	SetPixel(index int, r, g, b uint8)

	// SetAll sets every pixel to the same colour.
	SetAll(r, g, b uint8)

	// SetBrightness sets the global brightness, clamped to [0,1].
	SetBrightness(brightness float64)

	// Show flushes the frame buffer to the device.
	Show() error

	// Clear turns every pixel off in the frame buffer.
	Clear()

	// NumPixels returns the strip length.
	NumPixels() int

	// Close releases the underlying hardware.
	Close() error
}

// DeviceError reports a failed hardware write.
type DeviceError struct {
	Driver string
	Op     string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Driver, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
