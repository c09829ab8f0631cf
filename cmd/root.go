// Package cmd holds the iss-notify command line: the notifier daemon as the
// root command plus maintenance sub-commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/smazurov/iss-notify/internal/version"
)

// NewRootCmd creates the iss-notify command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   version.Name,
		Short: "Light up an LED strip before the ISS passes overhead",
		Long: `Polls the NASA Spot the Station RSS feed, schedules the next visible pass and ` +
			`plays an approach animation on an LED strip ahead of it.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := opts.Load(c); err != nil {
				return err
			}
			return run(c, opts)
		},
	}
	opts.AddFlags(root.PersistentFlags())

	root.AddCommand(
		CreateSightingsCmd(opts),
		CreateTestPatternCmd(opts),
		CreateUpdateCmd(),
		CreateVersionCmd(),
	)
	return root
}

// Execute runs the command line.
func Execute() error {
	return NewRootCmd().Execute()
}
