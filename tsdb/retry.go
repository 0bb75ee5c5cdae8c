package tsdb

import (
	"context"
	"time"

	"github.com/teranos/tsreplicate/internal/errors"
	"github.com/teranos/tsreplicate/internal/logger"
)

// nonRetryableError marks a failure that retrying cannot fix: a dialect-
// level error (malformed query, missing database) or an HTTP 4xx response.
// Only transport failures — connection errors, timeouts, and 5xx — are
// worth retrying (spec.md §4.4, §7(3)).
type nonRetryableError struct{ err error }

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// nonRetryable wraps err so withRetry surfaces it on the first attempt
// instead of retrying it.
func nonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

// withRetry runs fn, retrying up to maxRetries times with exponential
// backoff (delay, delay*2, delay*4, ...) on failure, matching the original
// tool's retry_with_backoff decorator. It gives up early if ctx is
// cancelled during the wait between attempts, or if fn returns an error
// wrapped with nonRetryable.
func withRetry(ctx context.Context, maxRetries int, delay time.Duration, label string, fn func() error) error {
	var lastErr error
	wait := delay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var nonRetry *nonRetryableError
		if errors.As(lastErr, &nonRetry) {
			return nonRetry.err
		}

		if attempt == maxRetries {
			break
		}

		logger.Logger.Warnw("request attempt failed, retrying",
			"operation", label,
			"attempt", attempt+1,
			"wait", wait,
			"error", lastErr,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}

	return errors.Wrapf(lastErr, "%s: all %d attempts failed", label, maxRetries+1)
}
