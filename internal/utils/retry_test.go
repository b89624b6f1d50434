package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		AttemptTimeout: time.Second,
		Retryable:      TransientStoreError,
	}
}

func TestTransientStoreError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{fmt.Errorf("put recipe: %w", errors.New("api error SlowDown: Please reduce your request rate")), true},
		{errors.New("dial tcp 10.0.0.1:5432: connect: connection refused"), true},
		{fmt.Errorf("save: %w", context.DeadlineExceeded), true},
		{errors.New("AccessDenied: access denied"), false},
		{errors.New("invalid recipe name"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := TransientStoreError(tt.err); got != tt.want {
			t.Errorf("TransientStoreError(%v) = %v; want %v", tt.err, got, tt.want)
		}
	}
}

func TestWithRetry_FirstAttempt(t *testing.T) {
	attempts := 0
	got, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		return "saved", nil
	}, fastPolicy())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "saved" || attempts != 1 {
		t.Errorf("got %q after %d attempts; want \"saved\" after 1", got, attempts)
	}
}

func TestWithRetry_TransientThenSuccess(t *testing.T) {
	attempts := 0
	var retried []int
	policy := fastPolicy()
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		retried = append(retried, attempt)
		if wait > policy.MaxDelay {
			t.Errorf("wait %v exceeds MaxDelay %v", wait, policy.MaxDelay)
		}
	}

	_, err := WithRetry(context.Background(), func(ctx context.Context) (struct{}, error) {
		attempts++
		if attempts < 3 {
			return struct{}{}, errors.New("database is locked")
		}
		return struct{}{}, nil
	}, policy)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d; want 3", attempts)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("OnRetry attempts = %v; want [1 2]", retried)
	}
}

func TestWithRetry_Exhausted(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("connection reset by peer")
	}, fastPolicy())

	if err == nil || err.Error() != "connection reset by peer" {
		t.Errorf("err = %v; want the last attempt's error", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d; want 3", attempts)
	}
}

func TestWithRetry_PermanentErrorStops(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("AccessDenied")
	}, fastPolicy())

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d; want 1", attempts)
	}
}

func TestWithRetry_NilRetryableRetriesEverything(t *testing.T) {
	policy := fastPolicy()
	policy.Retryable = nil

	attempts := 0
	_, _ = WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("AccessDenied")
	}, policy)

	if attempts != 3 {
		t.Errorf("attempts = %d; want 3", attempts)
	}
}

func TestWithRetry_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := fastPolicy()
	policy.InitialDelay = time.Hour
	policy.MaxDelay = time.Hour
	policy.OnRetry = func(int, error, time.Duration) { cancel() }

	_, err := WithRetry(ctx, func(ctx context.Context) (int, error) {
		return 0, errors.New("database is locked")
	}, policy)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v; want context.Canceled", err)
	}
}

func TestWithRetry_AttemptTimeout(t *testing.T) {
	policy := fastPolicy()
	policy.MaxAttempts = 2
	policy.AttemptTimeout = 5 * time.Millisecond

	attempts := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		<-ctx.Done()
		return 0, ctx.Err()
	}, policy)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v; want context.DeadlineExceeded", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d; want 2 (deadline errors are transient)", attempts)
	}
}

func TestWithRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	attempts := 0
	_, _ = WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("database is locked")
	}, RetryPolicy{})

	if attempts != 1 {
		t.Errorf("attempts = %d; want 1", attempts)
	}
}

func TestStoreRetryPolicy(t *testing.T) {
	p := StoreRetryPolicy()
	if p.MaxAttempts != 3 || p.Retryable == nil {
		t.Fatalf("StoreRetryPolicy() = %+v", p)
	}
	if p.InitialDelay >= p.MaxDelay {
		t.Errorf("InitialDelay %v should be below MaxDelay %v", p.InitialDelay, p.MaxDelay)
	}
}
