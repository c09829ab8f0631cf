package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct {
	slog.Handler
	err error
}

func (h failingHandler) Handle(context.Context, slog.Record) error { return h.err }

func TestMultiHandlerKeepsWritingAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	diskFull := errors.New("disk full")

	multi := NewMultiHandler(
		failingHandler{Handler: slog.NewTextHandler(&buf, nil), err: diskFull},
		nil,
		NewLineHandler(&buf, slog.LevelInfo),
	)

	r := slog.NewRecord(time.Date(2025, 1, 3, 21, 40, 0, 0, time.Local), slog.LevelInfo, "Next sighting scheduled", 0)
	err := multi.Handle(context.Background(), r)
	if !errors.Is(err, diskFull) {
		t.Errorf("Handle() error = %v, want %v", err, diskFull)
	}
	if !strings.Contains(buf.String(), "2025-01-03 21:40:00 INFO Next sighting scheduled") {
		t.Errorf("line sink did not receive the record: %q", buf.String())
	}
}

func TestMultiHandlerWithAttrsReachesEverySink(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(NewMultiHandler(
		NewLineHandler(&a, slog.LevelDebug),
		NewLineHandler(&b, slog.LevelWarn),
	)).With("module", "scheduler")

	logger.Info("polling feed")
	logger.Warn("feed empty")

	if !strings.Contains(a.String(), "polling feed module=scheduler") {
		t.Errorf("debug sink missing info line: %q", a.String())
	}
	if strings.Contains(b.String(), "polling feed") {
		t.Errorf("warn sink received info line: %q", b.String())
	}
	if !strings.Contains(b.String(), "feed empty module=scheduler") {
		t.Errorf("warn sink missing warn line: %q", b.String())
	}
}
