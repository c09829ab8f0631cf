package led

import (
	"log/slog"
	"os"
	"testing"
)

func TestNewMemoryDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dev, err := New(Options{Driver: "memory", Pixels: 12}, logger)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if dev.NumPixels() != 12 {
		t.Errorf("NumPixels() = %d, want 12", dev.NumPixels())
	}
	if _, ok := dev.(*Memory); !ok {
		t.Errorf("New() returned %T, want *Memory", dev)
	}
}

func TestNewErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	tests := []struct {
		name string
		opts Options
	}{
		{name: "unknown driver", opts: Options{Driver: "neopixel"}},
		{name: "opc without server", opts: Options{Driver: "opc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts, logger); err == nil {
				t.Error("New() should return an error")
			}
		})
	}
}

func TestDetectDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	driver := detectDriver(logger)
	if driver != DriverBlinkt && driver != DriverMemory {
		t.Errorf("detectDriver() = %q, want blinkt or memory", driver)
	}
}

func TestDetectBoard(t *testing.T) {
	model := detectBoard()

	// Should return a non-empty string (or "unknown")
	if model == "" {
		t.Error("detectBoard() returned empty string")
	}

	if model == "unknown" {
		t.Log("Board model unknown (expected on non-SBC systems)")
	}
}
