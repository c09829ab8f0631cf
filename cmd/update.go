package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/iss-notify/internal/logging"
	"github.com/smazurov/iss-notify/internal/systemd"
	"github.com/smazurov/iss-notify/internal/updater"
)

const restartTimeout = 30 * time.Second

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var (
		checkOnly   bool
		rollback    bool
		prerelease  bool
		restart     bool
		userService bool
		repository  string
		service     string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update iss-notify to the latest GitHub release",
		Long: `Checks GitHub for a newer release and replaces the running binary, keeping a backup ` +
			`for --rollback. With --restart the systemd unit is restarted afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := logging.Initialize(logging.Config{Level: "info", Format: "line"}); err != nil {
				return err
			}
			defer logging.Close()
			logger := logging.GetLogger("updater")

			u, err := updater.New(updater.Options{
				Repository: repository,
				Prerelease: prerelease,
			}, logger)
			if err != nil {
				return err
			}
			if !u.IsEnabled() {
				return fmt.Errorf("updates are disabled: %s", u.DisabledReason())
			}

			ctx := c.Context()
			out := c.OutOrStdout()
			switch {
			case rollback:
				if err := u.Rollback(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "Restored previous binary")
			case checkOnly:
				info, err := u.Check(ctx)
				if err != nil {
					return err
				}
				if !info.UpdateAvailable {
					fmt.Fprintf(out, "Up to date (%s)\n", info.CurrentVersion)
					return nil
				}
				fmt.Fprintf(out, "Update available: %s -> %s\n%s\n", info.CurrentVersion, info.LatestVersion, info.ReleaseURL)
				return nil
			default:
				info, err := u.Apply(ctx)
				if updater.HasCode(err, updater.ErrCodeNoUpdate) {
					fmt.Fprintf(out, "Up to date (%s)\n", info.CurrentVersion)
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Updated %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			}

			if !restart {
				return nil
			}
			return restartService(ctx, service, userService)
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only check whether an update is available")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Restore the binary saved by the last update")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")
	cmd.Flags().StringVar(&repository, "repository", updater.DefaultRepository, "GitHub repository to update from")
	cmd.Flags().BoolVar(&restart, "restart", false, "Restart the systemd service after updating")
	cmd.Flags().StringVar(&service, "service", systemd.DefaultServiceName, "systemd unit to restart")
	cmd.Flags().BoolVar(&userService, "user", false, "The unit runs under the user service manager")
	cmd.MarkFlagsMutuallyExclusive("check", "rollback")
	return cmd
}

func restartService(ctx context.Context, service string, user bool) error {
	ctx, cancel := context.WithTimeout(ctx, restartTimeout)
	defer cancel()

	m, err := systemd.NewManager(ctx, user)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.RestartService(ctx, service); err != nil {
		return err
	}
	state, err := m.ServiceStatus(ctx, service)
	if err != nil {
		return err
	}
	logging.GetLogger("updater").Info("Service restarted", "service", service, "state", state)
	return nil
}
