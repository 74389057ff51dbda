package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDo_Success(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, WithInitialDelay(5*time.Millisecond))

	if err != nil {
		t.Errorf("Expected no error after retries, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestDo_MaxRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	persistent := errors.New("persistent error")
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return persistent
	}, WithMaxRetries(3), WithInitialDelay(5*time.Millisecond))

	if !errors.Is(err, persistent) {
		t.Errorf("Expected error to wrap the last failure, got: %v", err)
	}
	// MaxRetries counts retries after the first attempt.
	if attempts != 4 {
		t.Errorf("Expected 4 attempts (1 + 3 retries), got: %d", attempts)
	}
}

func TestDo_ZeroRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("once")
	}, WithMaxRetries(0))

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("Expected a single attempt, got: %d", attempts)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()
	attempts := 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(context.Context) error {
		attempts++
		return errors.New("error")
	}, WithInitialDelay(50*time.Millisecond))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before context check, got: %d", attempts)
	}
}

func TestDo_ContextTimeout(t *testing.T) {
	t.Parallel()
	attempts := 0

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := Do(ctx, func(context.Context) error {
		attempts++
		return errors.New("error")
	}, WithInitialDelay(100*time.Millisecond), WithMaxRetries(10))

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got: %v", err)
	}
	if attempts > 2 {
		t.Errorf("Expected at most 2 attempts before timeout, got: %d", attempts)
	}
}

func TestDo_FatalError(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return Fatal(errors.New("fatal error"))
	}, WithInitialDelay(5*time.Millisecond))

	if !IsFatal(err) {
		t.Errorf("Expected fatal error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt (no retries for fatal error), got: %d", attempts)
	}
}

func TestDo_OnRetry(t *testing.T) {
	t.Parallel()
	var seen []int
	_ = Do(context.Background(), func(context.Context) error {
		return errors.New("error")
	},
		WithMaxRetries(2),
		WithInitialDelay(time.Millisecond),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) {
			seen = append(seen, attempt)
		}))

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("Expected retry hooks for attempts [1 2], got: %v", seen)
	}
}

func TestDo_BackoffIsCapped(t *testing.T) {
	t.Parallel()
	attempts := 0
	var delays []time.Duration
	last := time.Now()

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		now := time.Now()
		if attempts > 1 {
			delays = append(delays, now.Sub(last))
		}
		last = now
		if attempts < 5 {
			return errors.New("error")
		}
		return nil
	}, WithInitialDelay(10*time.Millisecond), WithMaxDelay(20*time.Millisecond))

	if err != nil {
		t.Fatalf("Expected success after retries, got: %v", err)
	}

	tolerance := 15 * time.Millisecond
	for i, delay := range delays {
		if delay > 20*time.Millisecond+tolerance {
			t.Errorf("Delay %d exceeded max: %v", i+1, delay)
		}
	}
}

func TestWithExponentialBackoff_ContextFree(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return errors.New("error")
		}
		return nil
	}, WithInitialDelay(time.Millisecond))

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got: %d", attempts)
	}
}

func TestFatal(t *testing.T) {
	t.Parallel()
	if err := Fatal(nil); err != nil {
		t.Errorf("Expected nil, got: %v", err)
	}

	original := errors.New("test error")
	err := Fatal(original)
	if !IsFatal(err) {
		t.Error("Expected error to be fatal")
	}
	if err.Error() != original.Error() {
		t.Errorf("Expected error message %q, got %q", original.Error(), err.Error())
	}
	if !errors.Is(err, original) {
		t.Error("errors.Is should find the original through FatalError.Unwrap()")
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("regular error"), false},
		{"fatal", Fatal(errors.New("fatal")), true},
		{"joined", errors.Join(Fatal(errors.New("base")), errors.New("more")), true},
		{"wrapped", fmt.Errorf("context: %w", Fatal(errors.New("base"))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDo_NotRetryable(t *testing.T) {
	t.Parallel()
	permanent := errors.New("permanent")
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return permanent
	},
		WithInitialDelay(time.Millisecond),
		WithRetryable(func(err error) bool { return !errors.Is(err, permanent) }))

	if !errors.Is(err, permanent) {
		t.Errorf("Expected the permanent error unchanged, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}
