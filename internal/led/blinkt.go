package led

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

const (
	gpioSysfsPath = "/sys/class/gpio"

	// Blinkt bit-bangs APA102 data on BCM 23 and clock on BCM 24.
	blinktDataPin  = 23
	blinktClockPin = 24

	apa102EndClocks = 36
)

// pin is a single GPIO output line.
type pin interface {
	Set(high bool) error
	Close() error
}

// sysfsPin drives a GPIO through the legacy /sys/class/gpio interface.
type sysfsPin struct {
	num   int
	value *os.File
}

func openSysfsPin(num int) (*sysfsPin, error) {
	dir := filepath.Join(gpioSysfsPath, fmt.Sprintf("gpio%d", num))

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		exportPath := filepath.Join(gpioSysfsPath, "export")
		if err := os.WriteFile(exportPath, []byte(strconv.Itoa(num)), 0o200); err != nil {
			return nil, fmt.Errorf("failed to export gpio %d: %w", num, err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "direction"), []byte("out"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to set gpio %d direction: %w", num, err)
	}

	value, err := os.OpenFile(filepath.Join(dir, "value"), os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open gpio %d value: %w", num, err)
	}
	return &sysfsPin{num: num, value: value}, nil
}

var (
	levelHigh = []byte("1")
	levelLow  = []byte("0")
)

func (p *sysfsPin) Set(high bool) error {
	level := levelLow
	if high {
		level = levelHigh
	}
	_, err := p.value.WriteAt(level, 0)
	return err
}

func (p *sysfsPin) Close() error {
	return p.value.Close()
}

// Blinkt drives a Pimoroni Blinkt (8 x APA102) by bit-banging two GPIO lines.
type Blinkt struct {
	buf    buffer
	data   pin
	clock  pin
	logger *slog.Logger
}

// NewBlinkt opens the Blinkt GPIO lines.
func NewBlinkt(logger *slog.Logger) (*Blinkt, error) {
	data, err := openSysfsPin(blinktDataPin)
	if err != nil {
		return nil, &DeviceError{Driver: "blinkt", Op: "open", Err: err}
	}
	clock, err := openSysfsPin(blinktClockPin)
	if err != nil {
		data.Close()
		return nil, &DeviceError{Driver: "blinkt", Op: "open", Err: err}
	}
	return newBlinkt(data, clock, logger), nil
}

func newBlinkt(data, clock pin, logger *slog.Logger) *Blinkt {
	return &Blinkt{
		buf:    newBuffer(DefaultPixels),
		data:   data,
		clock:  clock,
		logger: logger,
	}
}

// SetPixel implements Device.
func (b *Blinkt) SetPixel(index int, r, g, bl uint8) { b.buf.SetPixel(index, r, g, bl) }

// SetAll implements Device.
func (b *Blinkt) SetAll(r, g, bl uint8) { b.buf.SetAll(r, g, bl) }

// SetBrightness implements Device.
func (b *Blinkt) SetBrightness(brightness float64) { b.buf.SetBrightness(brightness) }

// Clear implements Device.
func (b *Blinkt) Clear() { b.buf.Clear() }

// NumPixels implements Device.
func (b *Blinkt) NumPixels() int { return b.buf.NumPixels() }

// Show clocks the frame out to the strip.
func (b *Blinkt) Show() error {
	for _, octet := range encodeAPA102(b.buf.frame) {
		if err := b.writeByte(octet); err != nil {
			return &DeviceError{Driver: "blinkt", Op: "show", Err: err}
		}
	}
	if err := b.data.Set(false); err != nil {
		return &DeviceError{Driver: "blinkt", Op: "show", Err: err}
	}
	for range apa102EndClocks {
		if err := b.pulse(); err != nil {
			return &DeviceError{Driver: "blinkt", Op: "show", Err: err}
		}
	}
	return nil
}

// Close releases the GPIO lines. The last frame stays lit.
func (b *Blinkt) Close() error {
	return errors.Join(b.data.Close(), b.clock.Close())
}

func (b *Blinkt) writeByte(octet byte) error {
	for bit := 7; bit >= 0; bit-- {
		if err := b.data.Set(octet&(1<<bit) != 0); err != nil {
			return err
		}
		if err := b.pulse(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Blinkt) pulse() error {
	if err := b.clock.Set(true); err != nil {
		return err
	}
	return b.clock.Set(false)
}

// encodeAPA102 renders a frame as an APA102 start frame followed by one
// brightness/blue/green/red word per pixel.
func encodeAPA102(f Frame) []byte {
	out := make([]byte, 4, 4+4*len(f.Pixels))
	level := byte(int(31*f.Brightness) & 0x1f)
	for _, c := range f.Pixels {
		out = append(out, 0xe0|level, c.B, c.G, c.R)
	}
	return out
}
