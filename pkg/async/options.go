package async

import (
	"errors"
	"time"

	"github.com/imamik/fanout/internal/util/retry"
)

// DuplicatePolicy decides how Run treats items that share a name.
type DuplicatePolicy int

const (
	// DuplicatesReject makes duplicate names a configuration error.
	DuplicatesReject DuplicatePolicy = iota
	// DuplicatesOverwrite runs every item; whichever duplicate completes
	// last owns the name's result.
	DuplicatesOverwrite
)

// Option configures a single Run call.
type Option func(*config)

type retryPolicy struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

type config struct {
	name       string
	limit      int
	timeout    time.Duration
	grace      time.Duration
	failFast   bool
	duplicates DuplicatePolicy
	retry      *retryPolicy
	observers  []Observer

	errs []error
}

func (c *config) invalid(field, reason string) {
	c.errs = append(c.errs, &ConfigError{Field: field, Reason: reason})
}

func newConfig(opts []Option) (*config, error) {
	c := &config{name: "batch"}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	return c, nil
}

// WithName names the batch in events, logs, and the Outcome.
func WithName(name string) Option {
	return func(c *config) {
		if name == "" {
			c.invalid("name", "must not be empty")
			return
		}
		c.name = name
	}
}

// WithConcurrency caps the number of items running at once. Items beyond
// the ceiling wait for a free slot. n must be positive.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n <= 0 {
			c.invalid("concurrency", "must be positive")
			return
		}
		c.limit = n
	}
}

// WithTimeout bounds the whole batch. When it elapses, running items are
// cancelled and the outcome records ErrTimeout as the interruption cause.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d <= 0 {
			c.invalid("timeout", "must be positive")
			return
		}
		c.timeout = d
	}
}

// WithGracePeriod lets in-flight items finish for up to d after the batch
// is cancelled, before Run seals the outcome.
func WithGracePeriod(d time.Duration) Option {
	return func(c *config) {
		if d < 0 {
			c.invalid("gracePeriod", "must not be negative")
			return
		}
		c.grace = d
	}
}

// WithFailFast aborts the batch on the first failure: nothing new starts
// and running items are cancelled.
func WithFailFast() Option {
	return func(c *config) {
		c.failFast = true
	}
}

// WithDuplicateNames sets the duplicate name policy.
func WithDuplicateNames(p DuplicatePolicy) Option {
	return func(c *config) {
		if p != DuplicatesReject && p != DuplicatesOverwrite {
			c.invalid("duplicateNames", "unknown policy")
			return
		}
		c.duplicates = p
	}
}

// WithRetry retries each failing item with exponential backoff. Fatal
// errors, panics and cancellations are never retried. A zero delay takes the
// default from retry.DefaultConfig.
func WithRetry(maxRetries int, initialDelay, maxDelay time.Duration) Option {
	return func(c *config) {
		if maxRetries < 0 {
			c.invalid("retry.maxRetries", "must not be negative")
			return
		}
		if initialDelay < 0 || maxDelay < 0 {
			c.invalid("retry", "delays must not be negative")
			return
		}
		defaults := retry.DefaultConfig()
		if initialDelay == 0 {
			initialDelay = defaults.InitialDelay
		}
		if maxDelay == 0 {
			maxDelay = defaults.MaxDelay
		}
		c.retry = &retryPolicy{
			maxRetries:   maxRetries,
			initialDelay: initialDelay,
			maxDelay:     maxDelay,
		}
	}
}

// WithObserver attaches an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o == nil {
			c.invalid("observer", "must not be nil")
			return
		}
		c.observers = append(c.observers, o)
	}
}
