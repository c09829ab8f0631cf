package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryFetcher retries a Fetcher with exponential backoff and jitter.
type RetryFetcher struct {
	next       Fetcher
	maxRetries uint64
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// NewRetryFetcher wraps next so each Fetch makes at most maxRetries extra attempts.
func NewRetryFetcher(next Fetcher, maxRetries int, logger *slog.Logger) *RetryFetcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryFetcher{
		next:       next,
		maxRetries: uint64(maxRetries),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 5 * time.Second
			b.MaxInterval = 2 * time.Minute
			b.MaxElapsedTime = 0
			return b
		},
		logger: logger,
	}
}

// Fetch delegates to the wrapped fetcher, retrying on failure.
func (f *RetryFetcher) Fetch(ctx context.Context) ([]byte, error) {
	var body []byte
	operation := func() error {
		var err error
		body, err = f.next.Fetch(ctx)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(f.newBackOff(), f.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		f.logger.Warn("Feed fetch failed, retrying", "error", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return body, nil
}
