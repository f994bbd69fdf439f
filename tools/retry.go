package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/kilnforge/meshpilot/core"
)

// RetryPolicy configures the generic tool retry harness (§4.D): up to
// MaxAttempts tries, linear (BaseDelay * attempt) backoff, and a predicate
// deciding which failures are worth retrying at all.
type RetryPolicy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	IsRetryable  func(err error) bool
}

// DefaultRetryPolicy retries transient failures (timeouts, 5xx-shaped
// remote errors) up to 3 times, never retrying a hard connection failure
// (§4.D "connection errors to the remote host are not retryable").
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		IsRetryable: defaultIsRetryable,
	}
}

func defaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case isErr(err, core.ErrNotConnected), isErr(err, core.ErrConnectionReset):
		return false
	case isErr(err, core.ErrTimeout), isErr(err, core.ErrRemoteError), isErr(err, core.ErrQueueFull):
		return true
	default:
		return true
	}
}

func isErr(err, target error) bool {
	return err == target || (err != nil && target != nil && err.Error() == target.Error())
}

// WithRetry runs fn up to policy.MaxAttempts times, backing off
// linearly (BaseDelay * attempt) between attempts, stopping early
// when fn succeeds or when IsRetryable rejects the latest error.
func WithRetry(ctx context.Context, policy *RetryPolicy, fn func() error) error {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !policy.IsRetryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.BaseDelay * time.Duration(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("tool retry: %w: %v", core.ErrMaxRetriesExceeded, lastErr)
}
