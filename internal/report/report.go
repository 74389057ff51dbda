// Package report turns an executor outcome into a run report and renders it
// as a table, JSON or YAML.
package report

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/imamik/fanout/internal/batch"
	"github.com/imamik/fanout/internal/metrics"
	"github.com/imamik/fanout/pkg/async"
)

// maxOutput caps the item output kept in a report.
const maxOutput = 4096

// Report is the serialisable summary of one batch run.
type Report struct {
	Batch       string    `json:"batch"`
	BatchID     string    `json:"batchID"`
	Result      string    `json:"result"`
	Interrupted string    `json:"interrupted,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
	Duration    string    `json:"duration"`
	Summary     Summary   `json:"summary"`
	Items       []Item    `json:"items"`
}

// Summary counts items by final status.
type Summary struct {
	Total        int `json:"total"`
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	NotCompleted int `json:"notCompleted"`
}

// Item is one row of the report.
type Item struct {
	Name     string `json:"name"`
	Kind     string `json:"kind,omitempty"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts,omitempty"`
	Duration string `json:"duration,omitempty"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

// New builds a Report from out. kinds maps item names to their kinds and
// may be nil.
func New(out *async.Outcome[string], kinds map[string]batch.Kind) *Report {
	r := &Report{
		Batch:       out.Name,
		BatchID:     out.BatchID,
		Result:      metrics.ResultOf(out, out.Interrupted),
		StartedAt:   out.StartedAt,
		CompletedAt: out.CompletedAt,
		Duration:    roundDuration(out.CompletedAt.Sub(out.StartedAt)).String(),
		Items:       make([]Item, 0, len(out.Results)),
	}
	if out.Interrupted != nil {
		r.Interrupted = interruptionReason(out.Interrupted)
	}

	for _, res := range out.Results {
		item := Item{
			Name:     res.Name,
			Kind:     string(kinds[res.Name]),
			Status:   res.Status.String(),
			Attempts: res.Attempts,
			Output:   truncate(strings.TrimSpace(res.Value), maxOutput),
		}
		if d := res.Duration(); d > 0 {
			item.Duration = roundDuration(d).String()
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		r.Items = append(r.Items, item)

		r.Summary.Total++
		switch res.Status {
		case async.StatusSucceeded:
			r.Summary.Succeeded++
		case async.StatusFailed:
			r.Summary.Failed++
		default:
			r.Summary.NotCompleted++
		}
	}

	sort.Slice(r.Items, func(i, j int) bool { return r.Items[i].Name < r.Items[j].Name })
	return r
}

// OK reports whether every item succeeded.
func (r *Report) OK() bool {
	return r.Summary.Succeeded == r.Summary.Total
}

func interruptionReason(err error) string {
	var abort *async.AbortError
	switch {
	case errors.As(err, &abort):
		return abort.Error()
	case errors.Is(err, async.ErrTimeout):
		return "timeout"
	case errors.Is(err, async.ErrNotStarted):
		return "not started"
	default:
		return "cancelled"
	}
}

func roundDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(time.Millisecond)
	default:
		return d
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
