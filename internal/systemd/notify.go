// Package systemd reports service state to the systemd supervisor.
// Outside a systemd unit every call is a no-op.
package systemd

import (
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Ready tells systemd that startup finished.
func Ready(logger *slog.Logger) {
	notify(logger, daemon.SdNotifyReady)
}

// Stopping tells systemd that shutdown began.
func Stopping(logger *slog.Logger) {
	notify(logger, daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func Status(logger *slog.Logger, status string) {
	notify(logger, "STATUS="+status)
}

func notify(logger *slog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("Failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		logger.Debug("Notified systemd", "state", state)
	}
}
