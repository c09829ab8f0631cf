package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/smazurov/iss-notify/internal/logging"
	"github.com/smazurov/iss-notify/internal/sighting"
)

// CreateSightingsCmd creates the sightings command.
func CreateSightingsCmd(opts *Options) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sightings",
		Short: "Fetch the feed and list predicted sightings",
		Long: `Fetches the configured Spot the Station feed once, parses it with the configured ` +
			`timezone and prints the sightings. Useful to check feed settings before running the notifier.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := opts.Load(c); err != nil {
				return err
			}
			if err := initCommandLogging(opts); err != nil {
				return err
			}
			defer logging.Close()

			parser, err := opts.Parser()
			if err != nil {
				return err
			}
			raw, err := opts.Fetcher(logging.GetLogger("feed")).Fetch(c.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch feed: %w", err)
			}
			list, err := parser.Parse(raw)
			if err != nil {
				return fmt.Errorf("failed to parse feed: %w", err)
			}
			renderSightings(c.OutOrStdout(), list, time.Now(), all)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include sightings that already started")
	return cmd
}

func renderSightings(w io.Writer, list []sighting.Sighting, now time.Time, all bool) {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("WHEN", "IN", "DURATION", "MAX ELEVATION", "APPROACH", "DEPARTURE")

	shown := 0
	for _, s := range list {
		until := s.When.Sub(now)
		if until < 0 && !all {
			continue
		}
		table.AddRow(
			s.When.Format("Mon Jan 2 15:04 MST"),
			formatUntil(until),
			fmt.Sprintf("%d min", s.DurationMinutes),
			fmt.Sprintf("%d°", s.MaxElevation),
			s.Approach.String(),
			s.Departure.String(),
		)
		shown++
	}

	if shown == 0 {
		fmt.Fprintln(w, "No upcoming sightings")
		return
	}
	fmt.Fprintln(w, table)
}

func formatUntil(d time.Duration) string {
	if d < 0 {
		return "passed"
	}
	return d.Truncate(time.Minute).String()
}

// initCommandLogging sets up logging for one-shot commands. They never
// append to the daemon's log file.
func initCommandLogging(opts *Options) error {
	cfg := opts.LoggingConfig()
	cfg.File = ""
	if err := logging.Initialize(cfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}
