package async

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// WorkItem is one independent unit of work submitted to Run.
type WorkItem[T any] struct {
	// Name identifies the item within its batch.
	Name string
	// Run does the work. It should return promptly once ctx is done.
	Run func(ctx context.Context) (T, error)
}

// Status is the final state of a submitted item.
type Status uint8

const (
	// StatusNotCompleted means the item never started or was interrupted
	// before it produced a value.
	StatusNotCompleted Status = iota
	// StatusSucceeded means the item's Run returned a nil error.
	StatusSucceeded
	// StatusFailed means the item's Run returned an error or panicked.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "not-completed"
	}
}

// Result is the recorded outcome of a single item.
type Result[T any] struct {
	Name   string
	Status Status

	// Value is set only when Status is StatusSucceeded.
	Value T

	// Err is the failure for StatusFailed, or the interruption cause for
	// StatusNotCompleted.
	Err error

	// StartedAt is zero if the item never started.
	StartedAt   time.Time
	CompletedAt time.Time

	// Attempts counts calls to Run, including retries.
	Attempts int
}

// Started reports whether the item's work began.
func (r Result[T]) Started() bool {
	return !r.StartedAt.IsZero()
}

// Duration is the wall-clock time the item ran for, or zero.
func (r Result[T]) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Outcome is everything Run knows about a batch once it returns.
type Outcome[T any] struct {
	BatchID string
	Name    string

	// Results has one entry per distinct item name.
	Results map[string]Result[T]

	// Incomplete lists, sorted, the items whose status is StatusNotCompleted.
	Incomplete []string

	// Interrupted is the reason the batch stopped early: context.Canceled,
	// ErrTimeout, or the *AbortError of a fail-fast or fatal failure. It is
	// nil when every item completed.
	Interrupted error

	StartedAt   time.Time
	CompletedAt time.Time
}

// Len returns the number of recorded results.
func (o *Outcome[T]) Len() int {
	return len(o.Results)
}

// Complete reports whether every item ran to completion.
func (o *Outcome[T]) Complete() bool {
	return len(o.Incomplete) == 0
}

// Result returns the recorded result for name.
func (o *Outcome[T]) Result(name string) (Result[T], bool) {
	r, ok := o.Results[name]
	return r, ok
}

// Succeeded returns the names of succeeded items in sorted order.
func (o *Outcome[T]) Succeeded() []string {
	return o.names(StatusSucceeded)
}

// Failed returns the names of failed items in sorted order.
func (o *Outcome[T]) Failed() []string {
	return o.names(StatusFailed)
}

// Completed returns the names of items that reached a terminal status.
func (o *Outcome[T]) Completed() []string {
	names := append(o.names(StatusSucceeded), o.names(StatusFailed)...)
	sort.Strings(names)
	return names
}

// Err joins every item failure, sorted by item name, or returns nil.
func (o *Outcome[T]) Err() error {
	failed := o.Failed()
	if len(failed) == 0 {
		return nil
	}

	errs := make([]error, 0, len(failed))
	for _, name := range failed {
		errs = append(errs, fmt.Errorf("item %q: %w", name, o.Results[name].Err))
	}
	return errors.Join(errs...)
}

func (o *Outcome[T]) names(status Status) []string {
	var names []string
	for name, r := range o.Results {
		if r.Status == status {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// EventType describes the type of lifecycle event for an item.
type EventType int

const (
	EventItemStarted EventType = iota
	EventItemCompleted
	EventItemSkipped
)

func (t EventType) String() string {
	switch t {
	case EventItemStarted:
		return "started"
	case EventItemCompleted:
		return "completed"
	case EventItemSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is a notification about an item's lifecycle.
//
// Completed events carry the recorded status; Skipped events are sent when
// the batch is sealed for every item that did not record a result.
type Event struct {
	Type      EventType
	Batch     string
	BatchID   string
	Item      string
	Time      time.Time
	Status    Status
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Observer receives lifecycle events. HandleEvent is called synchronously
// from the goroutines running the batch, so implementations must be safe
// for concurrent use and must not block.
type Observer interface {
	HandleEvent(e Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(e Event)

// HandleEvent calls f(e).
func (f ObserverFunc) HandleEvent(e Event) {
	f(e)
}
