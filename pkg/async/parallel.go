package async

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Task is an item that only reports success or failure.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes tasks concurrently and waits until they finish or the
// batch stops.
//
// Every failure is returned, joined in task name order. If the batch was cut
// short, an error naming the tasks that did not complete is joined in as
// well. It wraps the interruption cause, so errors.Is(err, context.Canceled)
// works for cancelled and fail-fast runs and errors.Is(err, ErrTimeout) for
// timeouts.
//
// Like Run, RunParallel stops waiting once the batch is cancelled. Tasks
// still running at that point may keep running until they observe ctx; pass
// WithGracePeriod to wait for them.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "namespace", Func: ensureNamespace},
//	    {Name: "rbac", Func: ensureRBAC},
//	}
//	if err := RunParallel(ctx, tasks, false); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task, failFast bool, opts ...Option) error {
	if len(tasks) == 0 {
		return nil
	}

	items := make([]WorkItem[struct{}], len(tasks))
	for i, task := range tasks {
		items[i] = WorkItem[struct{}]{
			Name: task.Name,
			Run: func(ctx context.Context) (struct{}, error) {
				if task.Func == nil {
					return struct{}{}, fmt.Errorf("task %q has no function", task.Name)
				}
				return struct{}{}, task.Func(ctx)
			},
		}
	}

	// RunParallel callers commonly reuse a generic name for every task.
	opts = append([]Option{WithDuplicateNames(DuplicatesOverwrite)}, opts...)
	if failFast {
		opts = append(opts, WithFailFast())
	}

	out, err := Run(ctx, items, opts...)
	if out == nil {
		return err
	}

	return errors.Join(out.Err(), incompleteError(out.Incomplete, out.Interrupted))
}

// incompleteError names the tasks that never finished. Tasks cut short by an
// abort report context.Canceled; the failure that caused the abort is
// already part of Outcome.Err.
func incompleteError(names []string, cause error) error {
	if len(names) == 0 {
		return nil
	}

	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = strconv.Quote(name)
	}
	list := strings.Join(quoted, ", ")

	var abort *AbortError
	if errors.As(cause, &abort) {
		return fmt.Errorf("%d task(s) did not complete (%s): cancelled after item %q failed: %w",
			len(names), list, abort.Item, context.Canceled)
	}
	return fmt.Errorf("%d task(s) did not complete (%s): %w", len(names), list, cause)
}
