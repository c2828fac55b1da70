// Package retry re-runs transient operations with a linear backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

// BaseDelay is the wait after the first failure; attempt n waits n*BaseDelay.
var BaseDelay = 500 * time.Millisecond

// Do calls fn up to attempts times and returns the first success. It stops
// early when ctx is done.
func Do[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("after %d attempts: %w", i+1, ctx.Err())
		case <-time.After(time.Duration(i+1) * BaseDelay):
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
