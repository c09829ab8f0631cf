package led

import "sync"

const defaultHistory = 1024

// Memory is an in-memory Device. It records every shown frame (up to a
// bounded history) so behaviour can be asserted without hardware.
type Memory struct {
	mu      sync.Mutex
	buf     buffer
	shown   Frame
	history []Frame
	limit   int
	shows   int
	showErr error
}

// NewMemory creates a memory device with the given pixel count.
func NewMemory(pixels int) *Memory {
	if pixels <= 0 {
		pixels = DefaultPixels
	}
	return &Memory{
		buf:   newBuffer(pixels),
		shown: newBuffer(pixels).frame,
		limit: defaultHistory,
	}
}

// SetPixel implements Device.
func (m *Memory) SetPixel(index int, r, g, b uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.SetPixel(index, r, g, b)
}

// SetAll implements Device.
func (m *Memory) SetAll(r, g, b uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.SetAll(r, g, b)
}

// SetBrightness implements Device.
func (m *Memory) SetBrightness(brightness float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.SetBrightness(brightness)
}

// Clear implements Device.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Clear()
}

// NumPixels implements Device.
func (m *Memory) NumPixels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.NumPixels()
}

// Show records the current buffer as the displayed frame.
func (m *Memory) Show() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.showErr != nil {
		return &DeviceError{Driver: "memory", Op: "show", Err: m.showErr}
	}

	m.shown = m.buf.frame.Clone()
	m.shows++
	m.history = append(m.history, m.shown)
	if len(m.history) > m.limit {
		m.history = m.history[len(m.history)-m.limit:]
	}
	return nil
}

// Close implements Device.
func (m *Memory) Close() error {
	return nil
}

// FailShows makes every subsequent Show return err. A nil err restores normal behaviour.
func (m *Memory) FailShows(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showErr = err
}

// Shown returns the last displayed frame.
func (m *Memory) Shown() Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown.Clone()
}

// Shows returns how many frames have been displayed.
func (m *Memory) Shows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shows
}

// History returns the most recently displayed frames, oldest first.
func (m *Memory) History() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Frame, len(m.history))
	for i, f := range m.history {
		out[i] = f.Clone()
	}
	return out
}
