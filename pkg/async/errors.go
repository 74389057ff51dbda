package async

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/fanout/internal/util/retry"
)

var (
	// ErrInvalidConfig matches every configuration error returned by Run.
	ErrInvalidConfig = errors.New("invalid executor configuration")

	// ErrTimeout is the cause recorded when the batch timeout elapses.
	ErrTimeout = fmt.Errorf("batch timeout: %w", context.DeadlineExceeded)

	// ErrNotStarted marks items that were never started.
	ErrNotStarted = errors.New("not started")
)

// ConfigError reports an invalid option or item. It is always returned
// before any work starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfig) true for every ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// AbortError is returned by Run when a failure aborted the batch, either
// because fail-fast mode is on or because the failure was fatal.
type AbortError struct {
	Item  string
	Err   error
	Fatal bool
}

func (e *AbortError) Error() string {
	kind := "failed"
	if e.Fatal {
		kind = "failed fatally"
	}
	return fmt.Sprintf("batch aborted: item %q %s: %v", e.Item, kind, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// PanicError records a panic recovered from an item's Run.
type PanicError struct {
	Item  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("item %q panicked: %v", e.Item, e.Value)
}

// Fatal marks err as fatal: the failing item aborts the whole batch and is
// never retried.
func Fatal(err error) error {
	return retry.Fatal(err)
}

// IsFatal reports whether err, or any error it wraps, was marked with Fatal.
func IsFatal(err error) bool {
	return retry.IsFatal(err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
