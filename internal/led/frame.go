package led

// Color is one pixel's RGB value.
type Color struct {
	R, G, B uint8
}

// Off is an unlit pixel.
var Off = Color{}

// Frame is a snapshot of the strip: per-pixel colours and global brightness.
type Frame struct {
	Pixels     []Color
	Brightness float64
}

// Clone returns a deep copy of f.
func (f Frame) Clone() Frame {
	pixels := make([]Color, len(f.Pixels))
	copy(pixels, f.Pixels)
	return Frame{Pixels: pixels, Brightness: f.Brightness}
}

// Scaled returns c with each channel multiplied by brightness.
func (c Color) Scaled(brightness float64) Color {
	return Color{
		R: uint8(float64(c.R) * brightness),
		G: uint8(float64(c.G) * brightness),
		B: uint8(float64(c.B) * brightness),
	}
}

// buffer is the frame buffer shared by the device implementations.
type buffer struct {
	frame Frame
}

func newBuffer(pixels int) buffer {
	return buffer{frame: Frame{Pixels: make([]Color, pixels), Brightness: 1}}
}

func (b *buffer) SetPixel(index int, r, g, bl uint8) {
	if index < 0 || index >= len(b.frame.Pixels) {
		return
	}
	b.frame.Pixels[index] = Color{R: r, G: g, B: bl}
}

func (b *buffer) SetAll(r, g, bl uint8) {
	for i := range b.frame.Pixels {
		b.frame.Pixels[i] = Color{R: r, G: g, B: bl}
	}
}

func (b *buffer) SetBrightness(brightness float64) {
	b.frame.Brightness = clampBrightness(brightness)
}

func (b *buffer) Clear() {
	for i := range b.frame.Pixels {
		b.frame.Pixels[i] = Off
	}
}

func (b *buffer) NumPixels() int {
	return len(b.frame.Pixels)
}

func clampBrightness(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
