package async

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/imamik/fanout/internal/util/retry"
)

// Run executes items concurrently and blocks until every item has a result,
// or until ctx is cancelled, the batch times out, or a failure aborts the
// batch.
//
// Configuration errors (see ErrInvalidConfig) are returned before anything
// starts, with a nil Outcome. Cancellation and timeouts are not errors: the
// Outcome reports them through Interrupted and Incomplete. The only other
// error is an *AbortError, returned together with the partial Outcome when
// fail-fast mode or a fatal failure stopped the batch.
//
// The logger is taken from ctx (logr.FromContextOrDiscard).
func Run[T any](ctx context.Context, items []WorkItem[T], opts ...Option) (*Outcome[T], error) {
	if ctx == nil {
		return nil, &ConfigError{Field: "context", Reason: "must not be nil"}
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := validateItems(items, cfg.duplicates); err != nil {
		return nil, err
	}

	b := newBatch(items, cfg, logr.FromContextOrDiscard(ctx))
	if len(items) == 0 {
		b.log.V(1).Info("empty batch, nothing to run")
		return b.seal(nil), nil
	}

	return b.run(ctx)
}

func validateItems[T any](items []WorkItem[T], policy DuplicatePolicy) error {
	var errs []error
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.Name == "" {
			errs = append(errs, &ConfigError{Field: fmt.Sprintf("items[%d].name", i), Reason: "must not be empty"})
			continue
		}
		if item.Run == nil {
			errs = append(errs, &ConfigError{Field: fmt.Sprintf("items[%d].run", i), Reason: fmt.Sprintf("item %q has nil Run", item.Name)})
		}
		if _, dup := seen[item.Name]; dup && policy == DuplicatesReject {
			errs = append(errs, &ConfigError{Field: fmt.Sprintf("items[%d].name", i), Reason: fmt.Sprintf("duplicate item name %q", item.Name)})
		}
		seen[item.Name] = struct{}{}
	}
	return errors.Join(errs...)
}

// batch is the per-Run state. It is discarded when Run returns.
type batch[T any] struct {
	id        string
	cfg       *config
	items     []WorkItem[T]
	log       logr.Logger
	startedAt time.Time

	mu      sync.Mutex // protects everything below
	sealed  bool
	abort   *AbortError
	cancel  context.CancelCauseFunc
	started map[string]time.Time
	results map[string]Result[T]

	// emitting tracks events being delivered so that none arrive after Run
	// returns.
	emitting sync.WaitGroup
}

func newBatch[T any](items []WorkItem[T], cfg *config, log logr.Logger) *batch[T] {
	id := uuid.NewString()
	return &batch[T]{
		id:        id,
		cfg:       cfg,
		items:     items,
		log:       log.WithValues("batch", cfg.name, "batchID", id),
		startedAt: time.Now(),
		started:   make(map[string]time.Time, len(items)),
		results:   make(map[string]Result[T], len(items)),
	}
}

func (b *batch[T]) run(parent context.Context) (*Outcome[T], error) {
	ctx := parent
	if b.cfg.timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeoutCause(parent, b.cfg.timeout, ErrTimeout)
		defer stop()
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	b.cancel = cancel

	var sem *semaphore.Weighted
	if b.cfg.limit > 0 {
		sem = semaphore.NewWeighted(int64(b.cfg.limit))
	}

	b.log.V(1).Info("starting batch", "items", len(b.items), "concurrency", b.cfg.limit, "failFast", b.cfg.failFast)

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			close(done)
		}()

		for _, item := range b.items {
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					return
				}
			}
			if ctx.Err() != nil {
				if sem != nil {
					sem.Release(1)
				}
				return
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				if sem != nil {
					defer sem.Release(1)
				}
				b.execute(ctx, item)
			}()
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		b.drain(done)
	}

	out := b.seal(context.Cause(ctx))

	b.log.V(1).Info("batch finished",
		"succeeded", len(out.Succeeded()),
		"failed", len(out.Failed()),
		"incomplete", len(out.Incomplete),
		"duration", out.CompletedAt.Sub(out.StartedAt))

	if b.abort != nil {
		return out, b.abort
	}
	return out, nil
}

// drain waits up to the grace period for running items after cancellation.
func (b *batch[T]) drain(done <-chan struct{}) {
	if b.cfg.grace <= 0 {
		return
	}

	timer := time.NewTimer(b.cfg.grace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		b.log.Info("grace period elapsed with items still running", "gracePeriod", b.cfg.grace)
	}
}

func (b *batch[T]) execute(ctx context.Context, item WorkItem[T]) {
	startedAt, ok := b.begin(ctx, item.Name)
	if !ok {
		return
	}
	b.emit(Event{Type: EventItemStarted, Item: item.Name, Time: startedAt, StartedAt: startedAt})
	b.emitting.Done()

	value, attempts, err := b.invoke(ctx, item)
	b.complete(ctx, item.Name, startedAt, value, attempts, err)
}

// begin marks name as started unless the batch is already stopping. On
// success the caller owns one emitting slot.
func (b *batch[T]) begin(ctx context.Context, name string) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed || b.abort != nil || ctx.Err() != nil {
		return time.Time{}, false
	}

	now := time.Now()
	b.started[name] = now
	b.emitting.Add(1)
	return now, true
}

func (b *batch[T]) invoke(ctx context.Context, item WorkItem[T]) (value T, attempts int, err error) {
	call := func(ctx context.Context) (err error) {
		attempts++
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Item: item.Name, Value: r, Stack: debug.Stack()}
			}
		}()

		v, err := item.Run(ctx)
		if err == nil {
			value = v
		}
		return err
	}

	if b.cfg.retry == nil {
		err = call(ctx)
		return value, attempts, err
	}

	err = retry.Do(ctx, call,
		retry.WithMaxRetries(b.cfg.retry.maxRetries),
		retry.WithInitialDelay(b.cfg.retry.initialDelay),
		retry.WithMaxDelay(b.cfg.retry.maxDelay),
		retry.WithRetryable(func(err error) bool {
			var pe *PanicError
			return !errors.As(err, &pe) && ctx.Err() == nil
		}),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			b.log.V(1).Info("retrying item", "item", item.Name, "attempt", attempt, "delay", delay, "error", err.Error())
		}),
	)
	return value, attempts, err
}

func (b *batch[T]) complete(ctx context.Context, name string, startedAt time.Time, value T, attempts int, err error) {
	res := Result[T]{
		Name:        name,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
		Attempts:    attempts,
	}
	switch {
	case err == nil:
		res.Status = StatusSucceeded
		res.Value = value
	case ctx.Err() != nil && isContextErr(err):
		res.Status = StatusNotCompleted
		res.Err = err
	default:
		res.Status = StatusFailed
		res.Err = err
	}

	b.mu.Lock()
	if b.sealed {
		b.mu.Unlock()
		b.log.V(1).Info("dropping result recorded after the batch was sealed", "item", name, "status", res.Status.String())
		return
	}
	if prev, ok := b.results[name]; ok && prev.Status != StatusNotCompleted && res.Status == StatusNotCompleted {
		// A cancelled duplicate never replaces a finished result.
		b.mu.Unlock()
		b.log.V(1).Info("keeping finished result of duplicate item", "item", name, "status", prev.Status.String())
		return
	}
	b.results[name] = res
	aborted := b.abortOn(name, res)
	b.emitting.Add(1)
	b.mu.Unlock()

	if res.Status == StatusFailed {
		b.log.Info("item failed", "item", name, "attempts", attempts, "error", res.Err.Error())
	} else {
		b.log.V(1).Info("item finished", "item", name, "status", res.Status.String(), "duration", res.Duration())
	}
	if aborted {
		b.log.Info("aborting batch", "item", name, "fatal", b.abort.Fatal)
	}

	b.emit(Event{
		Type:      EventItemCompleted,
		Item:      name,
		Time:      res.CompletedAt,
		Status:    res.Status,
		Err:       res.Err,
		StartedAt: startedAt,
		Duration:  res.Duration(),
	})
	b.emitting.Done()
}

// abortOn cancels the batch if res is the first failure that must stop it.
// b.mu must be held.
func (b *batch[T]) abortOn(name string, res Result[T]) bool {
	if res.Status != StatusFailed || b.abort != nil {
		return false
	}

	fatal := IsFatal(res.Err)
	if !fatal && !b.cfg.failFast {
		return false
	}

	b.abort = &AbortError{Item: name, Err: res.Err, Fatal: fatal}
	b.cancel(b.abort)
	return true
}

// seal freezes the batch and builds the Outcome. Results written before
// seal are final; completions arriving later are dropped.
func (b *batch[T]) seal(cause error) *Outcome[T] {
	b.mu.Lock()
	b.sealed = true
	b.mu.Unlock()

	b.emitting.Wait()

	out := &Outcome[T]{
		BatchID:     b.id,
		Name:        b.cfg.name,
		Results:     make(map[string]Result[T], len(b.items)),
		StartedAt:   b.startedAt,
		CompletedAt: time.Now(),
	}

	var skipped []Event
	for _, item := range b.items {
		if _, ok := out.Results[item.Name]; ok {
			continue
		}
		if res, ok := b.results[item.Name]; ok {
			out.Results[item.Name] = res
			continue
		}

		res := Result[T]{
			Name:      item.Name,
			Status:    StatusNotCompleted,
			StartedAt: b.started[item.Name],
		}
		switch {
		case !res.Started() && cause != nil:
			res.Err = errors.Join(ErrNotStarted, cause)
		case !res.Started():
			res.Err = ErrNotStarted
		default:
			res.Err = cause
		}
		out.Results[item.Name] = res

		skipped = append(skipped, Event{
			Type:      EventItemSkipped,
			Item:      item.Name,
			Time:      out.CompletedAt,
			Status:    StatusNotCompleted,
			Err:       res.Err,
			StartedAt: res.StartedAt,
		})
	}

	for name, res := range out.Results {
		if res.Status == StatusNotCompleted {
			out.Incomplete = append(out.Incomplete, name)
		}
	}
	sort.Strings(out.Incomplete)

	if len(out.Incomplete) > 0 {
		out.Interrupted = cause
		if out.Interrupted == nil {
			out.Interrupted = ErrNotStarted
		}
	}

	for _, ev := range skipped {
		b.emit(ev)
	}

	return out
}

func (b *batch[T]) emit(ev Event) {
	ev.Batch = b.cfg.name
	ev.BatchID = b.id
	for _, o := range b.cfg.observers {
		o.HandleEvent(ev)
	}
}
