package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// CommandFetcher retrieves the feed by running an external program (curl by
// default) with the URL as its final argument and reading its stdout.
type CommandFetcher struct {
	url    string
	name   string
	args   []string
	logger *slog.Logger
}

// NewCurlFetcher creates a CommandFetcher that shells out to curl.
func NewCurlFetcher(url string, logger *slog.Logger) *CommandFetcher {
	return NewCommandFetcher(url, logger, "curl", "--silent", "--show-error", "--location")
}

// NewCommandFetcher creates a fetcher running name with args followed by url.
func NewCommandFetcher(url string, logger *slog.Logger, name string, args ...string) *CommandFetcher {
	if url == "" {
		url = DefaultURL
	}
	return &CommandFetcher{
		url:    url,
		name:   name,
		args:   args,
		logger: logger,
	}
}

// Fetch runs the command and returns its standard output.
func (f *CommandFetcher) Fetch(ctx context.Context) ([]byte, error) {
	args := append(append([]string{}, f.args...), f.url)
	cmd := exec.CommandContext(ctx, f.name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			f.logger.Debug("Feed command failed",
				"command", f.name,
				"stderr", strings.TrimSpace(stderr.String()))
			if exitErr.ExitCode() < 0 {
				return nil, &TransportError{URL: f.url, Signaled: true}
			}
			return nil, &TransportError{URL: f.url, ExitCode: exitErr.ExitCode()}
		}
		return nil, &TransportError{URL: f.url, Cause: fmt.Errorf("running %s: %w", f.name, err)}
	}

	f.logger.Debug("Fetched feed", "command", f.name, "bytes", len(out))
	return out, nil
}
