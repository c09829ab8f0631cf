package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"github.com/smazurov/iss-notify/internal/animation"
	"github.com/smazurov/iss-notify/internal/led"
	"github.com/smazurov/iss-notify/internal/logging"
)

const defaultPatternFrames = 360

// CreateTestPatternCmd creates the test-pattern command.
func CreateTestPatternCmd(opts *Options) *cobra.Command {
	var frames int

	cmd := &cobra.Command{
		Use:   "test-pattern",
		Short: "Rotate a colour wheel across the LED strip",
		Long:  `Opens the configured LED driver and plays a rotating colour wheel to check wiring and pixel order.`,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := opts.Load(c); err != nil {
				return err
			}
			if frames <= 0 {
				return fmt.Errorf("frames must be positive, got %d", frames)
			}
			if err := initCommandLogging(opts); err != nil {
				return err
			}
			defer logging.Close()

			logger := logging.GetLogger("led")
			dev, err := led.New(opts.LEDOptions(), logger)
			if err != nil {
				return fmt.Errorf("failed to open LED device: %w", err)
			}
			defer func() {
				if closeErr := dev.Close(); closeErr != nil {
					logger.Warn("Failed to close LED device", "error", closeErr)
				}
			}()
			dev.SetBrightness(opts.LEDBrightness)

			ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("Playing test pattern", "frames", frames, "pixels", dev.NumPixels())
			return animation.TestPattern(ctx, dev, clock.RealClock{}, frames)
		},
	}

	cmd.Flags().IntVar(&frames, "frames", defaultPatternFrames, "Number of frames to play")
	return cmd
}
