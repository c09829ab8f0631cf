package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

type levelConfig struct {
	Level string
}

func loadLevel(path string) (levelConfig, error) {
	opts := &struct {
		Config string
		Level  string `toml:"logging.level"`
	}{Config: path}
	err := LoadConfig(opts, nil)
	return levelConfig{Level: opts.Level}, err
}

func newTestWatcher(path string, opts ...WatcherOption[levelConfig]) *Watcher[levelConfig] {
	opts = append([]WatcherOption[levelConfig]{WithDebounce[levelConfig](50 * time.Millisecond)}, opts...)
	return NewConfigWatcher(path, loadLevel, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func startWatcher(t *testing.T, w *Watcher[levelConfig]) {
	t.Helper()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	})
	// fsnotify needs a moment before the first write is seen
	time.Sleep(50 * time.Millisecond)
}

// forward never blocks the watch loop, so Stop in cleanup cannot hang.
func forward(ch chan levelConfig) func(levelConfig) {
	return func(cfg levelConfig) {
		select {
		case ch <- cfg:
		default:
		}
	}
}

func writeLevel(t *testing.T, path, level string) {
	t.Helper()
	if err := os.WriteFile(path, fmt.Appendf(nil, "[logging]\nlevel = %q\n", level), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitLevel(t *testing.T, ch <-chan levelConfig, want string) {
	t.Helper()
	select {
	case cfg := <-ch:
		if cfg.Level != want {
			t.Fatalf("reloaded level = %q, want %q", cfg.Level, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no reload for level %q", want)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iss-notify.toml")
	writeLevel(t, path, "info")

	w := newTestWatcher(path)
	got := make(chan levelConfig, 4)
	w.OnReload(forward(got))
	startWatcher(t, w)

	writeLevel(t, path, "debug")
	waitLevel(t, got, "debug")

	writeLevel(t, path, "warn")
	waitLevel(t, got, "warn")
}

func TestWatcherRenameOverSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iss-notify.toml")
	writeLevel(t, path, "info")

	w := newTestWatcher(path)
	got := make(chan levelConfig, 4)
	w.OnReload(forward(got))
	startWatcher(t, w)

	// Neighbouring files are ignored
	writeLevel(t, filepath.Join(dir, "other.toml"), "error")
	select {
	case cfg := <-got:
		t.Fatalf("unexpected reload for sibling file: %+v", cfg)
	case <-time.After(200 * time.Millisecond):
	}

	tmp := filepath.Join(dir, ".iss-notify.toml.swp")
	writeLevel(t, tmp, "debug")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	waitLevel(t, got, "debug")
}

func TestWatcherDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iss-notify.toml")
	writeLevel(t, path, "info")

	var loads atomic.Int32
	w := NewConfigWatcher(path, func(p string) (levelConfig, error) {
		loads.Add(1)
		return loadLevel(p)
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), WithDebounce[levelConfig](200*time.Millisecond))
	got := make(chan levelConfig, 4)
	w.OnReload(forward(got))
	startWatcher(t, w)

	for _, level := range []string{"debug", "warn", "error", "info", "debug"} {
		writeLevel(t, path, level)
		time.Sleep(30 * time.Millisecond)
	}
	waitLevel(t, got, "debug")

	time.Sleep(300 * time.Millisecond)
	if n := loads.Load(); n != 1 {
		t.Errorf("loader ran %d times, want 1", n)
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iss-notify.toml")
	writeLevel(t, path, "info")

	w := newTestWatcher(path)
	kept := make(chan levelConfig, 4)
	var removedCalls atomic.Int32
	w.OnReload(forward(kept))
	unsub := w.OnReload(func(levelConfig) { removedCalls.Add(1) })
	startWatcher(t, w)

	writeLevel(t, path, "debug")
	waitLevel(t, kept, "debug")

	unsub()
	writeLevel(t, path, "warn")
	waitLevel(t, kept, "warn")

	if n := removedCalls.Load(); n != 1 {
		t.Errorf("removed handler ran %d times, want 1", n)
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iss-notify.toml")
	writeLevel(t, path, "info")

	errs := make(chan error, 1)
	w := newTestWatcher(path, WithErrorHandler[levelConfig](func(err error) {
		select {
		case errs <- err:
		default:
		}
	}))
	got := make(chan levelConfig, 1)
	w.OnReload(forward(got))
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("[logging\nlevel = "), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		if err == nil {
			t.Error("error handler got nil")
		}
	case cfg := <-got:
		t.Fatalf("handler called with %+v for a broken file", cfg)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler not called")
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w := newTestWatcher(filepath.Join(t.TempDir(), "iss-notify.toml"))
	if err := w.Stop(); err != nil {
		t.Errorf("Stop without Start returned %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop returned %v", err)
	}
}

func TestWatcherStartMissingDirectory(t *testing.T) {
	w := newTestWatcher(filepath.Join(t.TempDir(), "missing", "iss-notify.toml"))
	if err := w.Start(); err == nil {
		t.Fatal("expected Start to fail for a missing directory")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop after failed Start returned %v", err)
	}
}
