package led

import (
	"log/slog"

	"github.com/kellydunn/go-opc"
)

// OPC drives a strip behind an Open Pixel Control server such as fadecandy.
// OPC has no global brightness so it is applied to the colours before sending.
type OPC struct {
	buf     buffer
	client  *opc.Client
	server  string
	channel uint8
	logger  *slog.Logger
}

// NewOPC connects to an OPC server at address (host:port).
func NewOPC(address string, pixels int, logger *slog.Logger) (*OPC, error) {
	if pixels <= 0 {
		pixels = DefaultPixels
	}

	client := opc.NewClient()
	if err := client.Connect("tcp", address); err != nil {
		return nil, &DeviceError{Driver: "opc", Op: "connect", Err: err}
	}

	logger.Info("Connected to OPC server", "server", address, "pixels", pixels)
	return &OPC{
		buf:    newBuffer(pixels),
		client: client,
		server: address,
		logger: logger,
	}, nil
}

// SetPixel implements Device.
func (o *OPC) SetPixel(index int, r, g, b uint8) { o.buf.SetPixel(index, r, g, b) }

// SetAll implements Device.
func (o *OPC) SetAll(r, g, b uint8) { o.buf.SetAll(r, g, b) }

// SetBrightness implements Device.
func (o *OPC) SetBrightness(brightness float64) { o.buf.SetBrightness(brightness) }

// Clear implements Device.
func (o *OPC) Clear() { o.buf.Clear() }

// NumPixels implements Device.
func (o *OPC) NumPixels() int { return o.buf.NumPixels() }

// Show sends the frame as a single set-pixel-colours message.
func (o *OPC) Show() error {
	if err := o.client.Send(opcMessage(o.channel, o.buf.frame)); err != nil {
		return &DeviceError{Driver: "opc", Op: "show", Err: err}
	}
	return nil
}

// Close implements Device. The OPC client keeps no resources beyond its socket,
// which the server side reaps when the process exits.
func (o *OPC) Close() error {
	return nil
}

func opcMessage(channel uint8, f Frame) *opc.Message {
	m := opc.NewMessage(channel)
	m.SetLength(uint16(len(f.Pixels) * 3))
	for i, c := range f.Pixels {
		scaled := c.Scaled(f.Brightness)
		m.SetPixelColor(i, scaled.R, scaled.G, scaled.B)
	}
	return m
}
