package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config selects levels, the stdout format and the log file.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"` // line, text or json
	File    string            `toml:"file"`
	Modules map[string]string `toml:"modules"`
}

// module is one named logger and the level it reads on every record.
type module struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

type registry struct {
	mu      sync.RWMutex
	config  Config
	ready   bool
	global  slog.LevelVar
	modules map[string]*module

	file    *os.File
	fileOut *lockedWriter
}

var (
	stdout = &lockedWriter{w: os.Stdout}
	reg    = newRegistry()
)

func newRegistry() *registry {
	return &registry{modules: map[string]*module{}}
}

// Initialize applies config and rebuilds every logger handed out so far, so
// they pick up the log file. Safe to call again.
func Initialize(config Config) error {
	return reg.initialize(config)
}

// Reconfigure changes levels only. Outputs stay as they are.
func Reconfigure(config Config) {
	reg.reconfigure(config)
}

// Close closes the log file, if any.
func Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.setFile("")
}

// GetLogger returns the logger for module. Its records carry module=<name>.
func GetLogger(name string) *slog.Logger {
	return reg.get(name)
}

func (r *registry) initialize(config Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.setFile(config.File); err != nil {
		return err
	}
	r.config = config
	r.ready = true
	r.global.Set(levelOr(config.Level, slog.LevelInfo))

	for name, m := range r.modules {
		m.level.Set(r.moduleLevel(name))
		m.logger = r.newLogger(name, m.level)
	}
	slog.SetDefault(slog.New(r.handler(&r.global)))
	return nil
}

func (r *registry) reconfigure(config Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.config.Level = config.Level
	r.config.Modules = config.Modules
	r.global.Set(levelOr(config.Level, slog.LevelInfo))
	for name, m := range r.modules {
		m.level.Set(r.moduleLevel(name))
	}
}

func (r *registry) get(name string) *slog.Logger {
	r.mu.RLock()
	m, ok := r.modules[name]
	r.mu.RUnlock()
	if ok {
		return m.logger
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.modules[name]; ok {
		return m.logger
	}

	m = &module{level: &slog.LevelVar{}}
	m.level.Set(r.moduleLevel(name))
	m.logger = r.newLogger(name, m.level)
	r.modules[name] = m
	return m.logger
}

// moduleLevel resolves the level for name. Callers hold mu.
func (r *registry) moduleLevel(name string) slog.Level {
	if !r.ready {
		return slog.LevelInfo
	}
	global := levelOr(r.config.Level, slog.LevelInfo)
	return levelOr(r.config.Modules[name], global)
}

func (r *registry) newLogger(name string, level slog.Leveler) *slog.Logger {
	return slog.New(r.handler(level)).With("module", name)
}

// handler builds the output chain for one level. Callers hold mu.
func (r *registry) handler(level slog.Leveler) slog.Handler {
	var console slog.Handler
	switch r.config.Format {
	case "json":
		console = slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: level})
	case "text":
		console = slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level})
	default:
		console = NewLineHandler(stdout, level)
	}

	var sinks []slog.Handler
	if stdoutUsable() {
		sinks = append(sinks, console)
	}
	if r.fileOut != nil {
		sinks = append(sinks, NewLineHandler(r.fileOut, level))
	}
	if IsJournalAvailable() {
		sinks = append(sinks, NewJournalHandler(level))
	}

	switch len(sinks) {
	case 0:
		return console
	case 1:
		return sinks[0]
	}
	return NewMultiHandler(sinks...)
}

// setFile swaps the append-only log file. An empty path closes it. Callers
// hold mu.
func (r *registry) setFile(path string) error {
	if r.file != nil && r.file.Name() == path {
		return nil
	}

	var err error
	if r.file != nil {
		err = r.file.Close()
		r.file, r.fileOut = nil, nil
	}
	if path == "" {
		return err
	}

	f, openErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if openErr != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, openErr)
	}
	r.file, r.fileOut = f, &lockedWriter{w: f}
	return nil
}

// stdoutUsable is false when stdout is closed or points at /dev/null, as it
// does for most systemd units.
func stdoutUsable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode.IsRegular() || mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func levelOr(s string, fallback slog.Level) slog.Level {
	if level, err := ParseLevel(s); err == nil {
		return level
	}
	return fallback
}
