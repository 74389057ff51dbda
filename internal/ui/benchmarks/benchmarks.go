// Package benchmarks provides timing estimates for a running batch.
package benchmarks

import (
	"slices"
	"time"
)

// Sample is a snapshot of a batch's observed timings.
type Sample struct {
	// Completed holds the durations of finished items.
	Completed []time.Duration
	// Running holds the elapsed time of items still in flight.
	Running []time.Duration
	// Pending is the number of items not started yet.
	Pending int
	// Concurrency is the ceiling; zero means unbounded.
	Concurrency int
}

// Median returns the median of ds, or zero for an empty slice.
func Median(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	sorted := slices.Clone(ds)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// EstimateRemaining guesses how long the batch still needs, assuming every
// item takes the median completed duration. It returns zero until at least
// one item has finished.
//
// Example: median 10s, one item running for 4s, five pending with a ceiling
// of 2 => 6s + 3 waves * 10s = 36s.
func EstimateRemaining(s Sample) time.Duration {
	expected := Median(s.Completed)
	if expected == 0 {
		return 0
	}

	// In-flight items run side by side; the slowest one gates the next wave.
	var running time.Duration
	for _, elapsed := range s.Running {
		if left := expected - elapsed; left > running {
			running = left
		}
	}

	if s.Pending <= 0 {
		return running
	}

	waves := 1
	if s.Concurrency > 0 {
		waves = (s.Pending + s.Concurrency - 1) / s.Concurrency
	}
	return running + time.Duration(waves)*expected
}

// Progress returns the finished fraction in [0, 1].
func Progress(finished, total int) float64 {
	if total <= 0 {
		return 1.0
	}
	p := float64(finished) / float64(total)
	if p > 1.0 {
		return 1.0
	}
	return p
}
