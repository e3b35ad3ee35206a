// Package retry implements the exponential back-off with jitter used by
// every connector call (spec §5): capped at 5 attempts, AuthError never
// retries, NotFound is data not an error, Transient and network errors
// retry.
//
// No example repo in the retrieval pack pins a dedicated backoff library
// (sony/gobreaker covers circuit breaking, not retry scheduling), so this
// package is deliberately stdlib-only — see DESIGN.md.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/tcmaker/core/internal/apperr"
)

const (
	MaxAttempts = 5
	baseDelay   = 250 * time.Millisecond
	maxDelay    = 10 * time.Second
)

// Do calls fn up to MaxAttempts times, backing off exponentially with
// jitter between attempts. It stops immediately (no retry) on success, on
// AuthError or NotFound, when fn's error is a context cancellation or
// deadline, or when ctx is cancelled during back-off, and returns the last
// error otherwise.
func Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if apperr.Is(err, apperr.AuthError) {
			return err
		}
		if apperr.Is(err, apperr.NotFound) {
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if attempt == MaxAttempts-1 {
			break
		}

		delay := backoffDelay(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func backoffDelay(attempt int) time.Duration {
	d := baseDelay * time.Duration(1<<uint(attempt))
	if d > maxDelay {
		d = maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d/2 + jitter
}
