package utils

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"
)

// RetryPolicy controls how WithRetry repeats a failing operation.
type RetryPolicy struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration

	// Retryable reports whether an error is worth another attempt. A nil
	// Retryable retries every error.
	Retryable func(error) bool

	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// StoreRetryPolicy is used for recipe store writes: three short attempts,
// retrying only errors that look transient.
func StoreRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		AttemptTimeout: 10 * time.Second,
		Retryable:      TransientStoreError,
	}
}

// transientStorePatterns are lowercase fragments of errors the SQLite,
// Postgres and S3 backends return for conditions that clear on their own.
var transientStorePatterns = []string{
	"database is locked",
	"sqlite_busy",
	"connection reset",
	"connection refused",
	"broken pipe",
	"too many connections",
	"slowdown",
	"serviceunavailable",
	"internalerror",
	"requesttimeout",
}

// TransientStoreError reports whether a store error is likely to succeed on
// a later attempt.
func TransientStoreError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return ContainsAny(err.Error(), transientStorePatterns)
}

// ContainsAny reports whether s contains any of the lowercase patterns,
// ignoring case in s.
func ContainsAny(s string, patterns []string) bool {
	s = strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// WithRetry runs operation until it succeeds, returns a non-retryable error,
// or the policy runs out of attempts. Each attempt gets its own timeout when
// AttemptTimeout is set. Waits double from InitialDelay up to MaxDelay, with
// up to half of each wait randomised.
func WithRetry[T any](ctx context.Context, operation func(ctx context.Context) (T, error), policy RetryPolicy) (T, error) {
	var zero T
	attempts := max(policy.MaxAttempts, 1)
	delay := policy.InitialDelay

	for attempt := 1; ; attempt++ {
		result, err := runAttempt(ctx, operation, policy.AttemptTimeout)
		if err == nil {
			return result, nil
		}
		if attempt == attempts || (policy.Retryable != nil && !policy.Retryable(err)) {
			return zero, err
		}

		wait := min(delay, policy.MaxDelay)
		if half := int64(wait / 2); half > 0 {
			wait = time.Duration(half + rand.Int64N(half+1))
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
		delay *= 2
	}
}

func runAttempt[T any](ctx context.Context, operation func(ctx context.Context) (T, error), timeout time.Duration) (T, error) {
	if timeout <= 0 {
		return operation(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return operation(ctx)
}
