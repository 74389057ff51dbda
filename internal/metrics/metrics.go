// Package metrics records executor activity as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/fanout/pkg/async"
)

// Batch results recorded in fanout_batches_total.
const (
	ResultComplete    = "complete"
	ResultFailed      = "failed"
	ResultInterrupted = "interrupted"
	ResultAborted     = "aborted"
)

// Recorder turns executor events into metrics. It implements async.Observer
// and is safe for concurrent use.
type Recorder struct {
	itemsTotal   *prometheus.CounterVec
	itemDuration *prometheus.HistogramVec
	inFlight     *prometheus.GaugeVec
	batchesTotal *prometheus.CounterVec
}

var _ async.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		itemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fanout",
				Name:      "items_total",
				Help:      "Total number of work items by final status",
			},
			[]string{"batch", "status"},
		),
		itemDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fanout",
				Name:      "item_duration_seconds",
				Help:      "Duration of completed work items in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
			},
			[]string{"batch"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "fanout",
				Name:      "items_in_flight",
				Help:      "Number of work items currently running",
			},
			[]string{"batch"},
		),
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fanout",
				Name:      "batches_total",
				Help:      "Total number of batches by result",
			},
			[]string{"batch", "result"},
		),
	}

	for _, c := range []prometheus.Collector{r.itemsTotal, r.itemDuration, r.inFlight, r.batchesTotal} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return r, nil
}

// HandleEvent implements async.Observer.
func (r *Recorder) HandleEvent(e async.Event) {
	switch e.Type {
	case async.EventItemStarted:
		r.inFlight.WithLabelValues(e.Batch).Inc()
	case async.EventItemCompleted:
		r.inFlight.WithLabelValues(e.Batch).Dec()
		r.itemsTotal.WithLabelValues(e.Batch, e.Status.String()).Inc()
		r.itemDuration.WithLabelValues(e.Batch).Observe(e.Duration.Seconds())
	case async.EventItemSkipped:
		// Started items sealed before they returned still count as running.
		if !e.StartedAt.IsZero() {
			r.inFlight.WithLabelValues(e.Batch).Dec()
		}
		r.itemsTotal.WithLabelValues(e.Batch, e.Status.String()).Inc()
	}
}

// RecordBatch counts a finished batch.
func (r *Recorder) RecordBatch(batch, result string) {
	r.batchesTotal.WithLabelValues(batch, result).Inc()
}

// ResultOf classifies the value pair returned by async.Run.
func ResultOf[T any](out *async.Outcome[T], err error) string {
	var abort *async.AbortError
	switch {
	case errors.As(err, &abort):
		return ResultAborted
	case out == nil:
		return ResultFailed
	case !out.Complete():
		return ResultInterrupted
	case len(out.Failed()) > 0:
		return ResultFailed
	default:
		return ResultComplete
	}
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, for the node-exporter textfile collector. Parent directories are
// created as needed.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
