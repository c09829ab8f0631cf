package systemd

import (
	"bytes"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
)

func TestNotifyWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Ready(logger)
	Stopping(logger)
	Status(logger, "idle")

	if buf.Len() != 0 {
		t.Errorf("expected no log output outside systemd, got %q", buf.String())
	}
}

func TestNotifySendsToSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Skipf("unix datagram sockets unavailable: %v", err)
	}
	defer conn.Close()

	t.Setenv("NOTIFY_SOCKET", path)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	Status(logger, "next sighting in 5m")

	msg := make([]byte, 128)
	n, err := conn.Read(msg)
	if err != nil {
		t.Fatalf("Read() returned error: %v", err)
	}
	if got := string(msg[:n]); got != "STATUS=next sighting in 5m" {
		t.Errorf("notify payload = %q", got)
	}
}
