// Package logging hands out per-module slog loggers whose levels can be
// changed while the process runs.
//
// Every record is written to stdout (unless it is /dev/null), to the log file
// when one is configured and to the systemd journal when journald is running.
//
//	if err := logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "line",
//		File:    "iss-notify.log",
//		Modules: map[string]string{"scheduler": "debug"},
//	}); err != nil {
//		return err
//	}
//	defer logging.Close()
//
//	logger := logging.GetLogger("scheduler")
//	logger.Info("Next sighting scheduled", "in", wait)
//
// The line format, used on stdout by default and always in the log file:
//
//	2025-01-03 21:40:00 INFO Sending ISS notification module=scheduler when=2025-01-03T21:45:00-08:00
//
// In the journal, attributes become fields:
//
//	journalctl -t iss-notify MODULE=scheduler
//
// Module levels override the global one for that module only and follow
// config file edits through Reconfigure:
//
//	[logging]
//	level = "info"
//	scheduler = "debug"
//	mqtt = "warn"
package logging
