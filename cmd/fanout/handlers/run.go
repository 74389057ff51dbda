// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/imamik/fanout/internal/batch"
	"github.com/imamik/fanout/internal/metrics"
	"github.com/imamik/fanout/internal/platform/s3"
	"github.com/imamik/fanout/internal/report"
	"github.com/imamik/fanout/internal/ui/tui"
	"github.com/imamik/fanout/internal/work"
	"github.com/imamik/fanout/pkg/async"
)

// ErrBatchFailed is returned when the batch ran but not every item
// succeeded.
var ErrBatchFailed = errors.New("batch did not complete successfully")

// uploadTimeout bounds the report upload, which runs even after the batch
// context was cancelled.
const uploadTimeout = 30 * time.Second

// Uploader stores rendered reports. *s3.Client implements it.
type Uploader interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// findBatchFile locates fanout.yaml when no path is given.
	findBatchFile = batch.FindBatchFile

	// loadBatch loads and validates a batch file.
	loadBatch = batch.Load

	// newWorkEnv creates the collaborators runners use.
	newWorkEnv = work.DefaultEnv

	// newUploader creates the report uploader.
	newUploader = func(endpoint, region, accessKey, secretKey string) (Uploader, error) {
		return s3.NewClient(endpoint, region, accessKey, secretKey)
	}

	// runDashboard shows the TUI while the batch runs.
	runDashboard = tui.Run

	// isTerminal reports whether f is an interactive terminal.
	isTerminal = func(f *os.File) bool {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	// stdout receives the report (for testing injection).
	stdout io.Writer = os.Stdout

	// writeFile writes data to a file (for testing injection).
	writeFile = os.WriteFile
)

// RunOptions carries the run command's flags. Nil and zero values keep the
// batch file's settings.
type RunOptions struct {
	BatchPath   string
	Concurrency *int
	Timeout     *time.Duration
	FailFast    bool
	Output      batch.Format
	ReportFile  string
	NoTUI       bool
}

// Run executes a batch file.
//
// This function orchestrates one run:
//  1. Loads the batch file and applies flag overrides
//  2. Builds a runner per item (SSH keys are read here)
//  3. Runs the items, showing the dashboard on a terminal or logging progress otherwise
//  4. Renders the report to stdout and, if configured, to a file and S3
//  5. Writes the metrics textfile if configured
//
// ErrBatchFailed is returned if any item failed or did not complete.
func Run(ctx context.Context, opts RunOptions) error {
	b, err := loadRunBatch(opts)
	if err != nil {
		return err
	}

	items, err := work.Build(b, newWorkEnv(b.Kubeconfig))
	if err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	log := ctrl.Log.WithName("run").WithValues("batch", b.Name)

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}

	execOpts := append(b.ExecutorOptions(), async.WithObserver(recorder))
	format := b.ReportFormat()
	interactive := !opts.NoTUI && format == batch.FormatTable &&
		isTerminal(os.Stdout) && isTerminal(os.Stdin)

	log.Info("starting batch", "items", len(items), "dashboard", interactive)
	out, runErr := execute(ctx, b, items, execOpts, interactive, log)
	if out == nil {
		return runErr
	}

	result := metrics.ResultOf(out, runErr)
	recorder.RecordBatch(b.Name, result)

	rep := report.New(out, b.Kinds())
	errs := []error{
		rep.Write(stdout, format, interactive),
		writeReportFile(b, rep, format),
		uploadReport(ctx, b, rep, format, log),
		writeMetrics(b, reg),
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	log.Info("batch finished", "batchID", out.BatchID, "result", result)
	if !rep.OK() {
		return fmt.Errorf("%w: %s", ErrBatchFailed, result)
	}
	return nil
}

// loadRunBatch loads the batch file and applies flag overrides, then
// validates the result again.
func loadRunBatch(opts RunOptions) (*batch.Batch, error) {
	path := opts.BatchPath
	if path == "" {
		found, err := findBatchFile()
		if err != nil {
			return nil, fmt.Errorf("no batch file found: %w\nRun 'fanout init' to create one", err)
		}
		path = found
	}

	b, err := loadBatch(path)
	if err != nil {
		return nil, err
	}

	if opts.Concurrency != nil {
		n := *opts.Concurrency
		b.Concurrency = &n
	}
	if opts.Timeout != nil {
		b.Timeout = *opts.Timeout
	}
	if opts.FailFast {
		b.FailFast = true
	}
	if opts.Output != "" {
		b.Report.Format = opts.Output
	}
	if opts.ReportFile != "" {
		b.Report.File = opts.ReportFile
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags for %s: %w", path, err)
	}
	return b, nil
}

// execute runs items, either behind the dashboard or with progress logged.
func execute(
	ctx context.Context,
	b *batch.Batch,
	items []async.WorkItem[string],
	opts []async.Option,
	interactive bool,
	log logr.Logger,
) (*async.Outcome[string], error) {
	if !interactive {
		opts = append(opts, async.WithObserver(progressLogger(log)))
		return async.Run(logr.NewContext(ctx, log), items, opts...)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rows := make([]tui.Item, len(b.Items))
	for i, item := range b.Items {
		rows[i] = tui.Item{Name: item.Name, Kind: string(item.Kind)}
	}
	concurrency := 0
	if b.Concurrency != nil {
		concurrency = *b.Concurrency
	}

	var (
		out    *async.Outcome[string]
		runErr error
	)
	// Log lines would tear the dashboard; the report shows every failure.
	quiet := logr.NewContext(ctx, logr.Discard())
	_, err := runDashboard(tui.NewModel(b.Name, rows, concurrency, cancel), func(obs async.Observer) {
		out, runErr = async.Run(quiet, items, append(opts, async.WithObserver(obs))...)
	})
	if err != nil {
		log.Error(err, "dashboard stopped")
	}
	return out, runErr
}

// progressLogger logs item transitions for non-interactive runs.
func progressLogger(log logr.Logger) async.Observer {
	return async.ObserverFunc(func(e async.Event) {
		switch e.Type {
		case async.EventItemStarted:
			log.V(1).Info("item started", "item", e.Item)
		case async.EventItemCompleted:
			if e.Status == async.StatusFailed {
				return // logged by the executor
			}
			log.Info("item completed", "item", e.Item, "status", e.Status.String(), "duration", e.Duration.String())
		case async.EventItemSkipped:
			log.Info("item not completed", "item", e.Item, "reason", e.Err)
		}
	})
}

func writeReportFile(b *batch.Batch, rep *report.Report, format batch.Format) error {
	if b.Report.File == "" {
		return nil
	}
	data, err := rep.Bytes(format)
	if err != nil {
		return err
	}
	if err := writeFile(b.Report.File, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

func uploadReport(ctx context.Context, b *batch.Batch, rep *report.Report, format batch.Format, log logr.Logger) error {
	target := b.Report.S3
	if target == nil {
		return nil
	}

	uploader, err := newUploader(target.Endpoint, target.Region,
		os.Getenv(batch.EnvS3AccessKey), os.Getenv(batch.EnvS3SecretKey))
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	data, err := rep.Bytes(format)
	if err != nil {
		return err
	}

	// The report matters most when the run was interrupted.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uploadTimeout)
	defer cancel()

	if err := uploader.EnsureBucket(ctx, target.Bucket); err != nil {
		return fmt.Errorf("failed to prepare report bucket: %w", err)
	}
	key := s3.ObjectKey(target.Key, rep.Batch, rep.BatchID)
	if err := uploader.PutObject(ctx, target.Bucket, key, report.ContentType(format), data); err != nil {
		return fmt.Errorf("failed to upload report: %w", err)
	}

	log.Info("uploaded report", "bucket", target.Bucket, "key", key)
	return nil
}

func writeMetrics(b *batch.Batch, g prometheus.Gatherer) error {
	if b.Metrics.Textfile == "" {
		return nil
	}
	return metrics.WriteTextfile(b.Metrics.Textfile, g)
}
