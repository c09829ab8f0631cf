package led

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Drivers accepted by New.
const (
	DriverAuto   = "auto"
	DriverBlinkt = "blinkt"
	DriverOPC    = "opc"
	DriverMemory = "memory"
)

// Options selects and configures an LED driver.
type Options struct {
	Driver    string
	Pixels    int
	OPCServer string
}

// New creates the LED device selected by opts. The "auto" driver detects the
// board and falls back to the in-memory device when no strip is attached.
func New(opts Options, logger *slog.Logger) (Device, error) {
	driver := strings.ToLower(opts.Driver)
	if driver == "" || driver == DriverAuto {
		driver = detectDriver(logger)
	}

	switch driver {
	case DriverBlinkt:
		if opts.Pixels != 0 && opts.Pixels != DefaultPixels {
			logger.Warn("Blinkt has a fixed pixel count, ignoring configured value", "pixels", opts.Pixels)
		}
		return NewBlinkt(logger)
	case DriverOPC:
		if opts.OPCServer == "" {
			return nil, fmt.Errorf("led driver %q requires an OPC server address", DriverOPC)
		}
		return NewOPC(opts.OPCServer, opts.Pixels, logger)
	case DriverMemory:
		return NewMemory(opts.Pixels), nil
	default:
		return nil, fmt.Errorf("unknown led driver %q", opts.Driver)
	}
}

// detectDriver picks a driver from the device tree model.
func detectDriver(logger *slog.Logger) string {
	boardModel := detectBoard()
	logger.Info("Detecting board for LED control", "board_model", boardModel)

	if strings.Contains(boardModel, "Raspberry Pi") {
		logger.Info("Detected Raspberry Pi, using Blinkt driver")
		return DriverBlinkt
	}

	logger.Info("No LED strip detected, using in-memory driver", "board_model", boardModel)
	return DriverMemory
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	model := strings.TrimRight(string(data), "\x00")
	return model
}
