package handlers

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/imamik/fanout/internal/batch"
	"github.com/imamik/fanout/internal/util/prerequisites"
	"github.com/imamik/fanout/internal/work"
)

// checkTools looks up the binaries exec items run. Replaced in tests.
var checkTools = prerequisites.CheckBatch

// Validate loads a batch file, builds every item and checks that exec
// binaries are installed without running anything, then prints the plan.
func Validate(_ context.Context, path string) error {
	b, err := loadRunBatch(RunOptions{BatchPath: path})
	if err != nil {
		return err
	}

	if _, err := work.Build(b, newWorkEnv(b.Kubeconfig)); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}
	if err := checkTools(b).Error(); err != nil {
		return err
	}

	printPlan(stdout, b)
	return nil
}

// printPlan prints the executor settings and the items of b.
func printPlan(w io.Writer, b *batch.Batch) {
	concurrency := "unbounded"
	if b.Concurrency != nil {
		concurrency = fmt.Sprintf("%d", *b.Concurrency)
	}
	timeout := "none"
	if b.Timeout > 0 {
		timeout = b.Timeout.String()
	}
	mode := "isolated"
	if b.FailFast {
		mode = "fail-fast"
	}

	fmt.Fprintf(w, "Batch %q is valid.\n\n", b.Name)
	fmt.Fprintf(w, "  Items:       %d\n", len(b.Items))
	fmt.Fprintf(w, "  Concurrency: %s\n", concurrency)
	fmt.Fprintf(w, "  Timeout:     %s\n", timeout)
	fmt.Fprintf(w, "  Failures:    %s\n", mode)
	if b.Retry != nil {
		fmt.Fprintf(w, "  Retries:     %d\n", b.Retry.MaxRetries)
	}
	fmt.Fprintf(w, "  Report:      %s\n", b.ReportFormat())
	if len(b.Items) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tKIND\tTARGET")
	for _, item := range b.Items {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", item.Name, item.Kind, target(item))
	}
	tw.Flush()
}

// target summarises what an item acts on.
func target(item batch.Item) string {
	switch {
	case item.Sleep != nil:
		return item.Sleep.Duration.String()
	case item.Fail != nil && item.Fail.Message != "":
		return item.Fail.Message
	case item.Exec != nil:
		return fmt.Sprint(item.Exec.Command)
	case item.HTTP != nil:
		return item.HTTP.URL
	case item.Pod != nil && item.Pod.Name != "":
		return fmt.Sprintf("pod %s/%s", namespaceOrDefault(item.Pod.Namespace), item.Pod.Name)
	case item.Pod != nil:
		return fmt.Sprintf("pods %s in %s", item.Pod.Selector, namespaceOrDefault(item.Pod.Namespace))
	case item.SSH != nil:
		return fmt.Sprintf("%s@%s", item.SSH.User, item.SSH.Host)
	default:
		return "-"
	}
}

func namespaceOrDefault(ns string) string {
	if ns == "" {
		return "default"
	}
	return ns
}
