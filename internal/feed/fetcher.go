// Package feed retrieves the raw sightings feed.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/smazurov/iss-notify/internal/version"
)

const (
	// DefaultURL is the Spot the Station feed for Redwood City, California.
	DefaultURL = "https://spotthestation.nasa.gov/sightings/xml_files/United_States_California_Redwood_City.xml"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// Fetcher retrieves the raw feed document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPFetcher retrieves the feed with a plain HTTP GET.
type HTTPFetcher struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPFetcher creates a fetcher for url. A zero timeout uses the default.
func NewHTTPFetcher(url string, timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPFetcher{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// URL returns the configured feed URL.
func (f *HTTPFetcher) URL() string {
	return f.url
}

// Fetch performs the GET and returns the body.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: f.url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{URL: f.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &TransportError{URL: f.url, Cause: fmt.Errorf("reading response body: %w", err)}
	}
	if len(body) > maxBodyBytes {
		return nil, &TransportError{URL: f.url, Cause: fmt.Errorf("response exceeds %d byte limit", maxBodyBytes)}
	}

	f.logger.Debug("Fetched feed", "url", f.url, "bytes", len(body))
	return body, nil
}
