package testing

import (
	"slices"
	"time"

	"github.com/imamik/fanout/internal/batch"
)

// BatchBuilder provides a fluent interface for constructing test batches.
// Each method returns a new builder (immutable) for chaining.
type BatchBuilder struct {
	b batch.Batch
}

// NewBatchBuilder creates a new BatchBuilder with sensible defaults.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{
		b: batch.Batch{
			Name: "test-batch",
			Report: batch.Report{
				Format: batch.FormatTable,
			},
		},
	}
}

// WithName sets the batch name.
func (b *BatchBuilder) WithName(name string) *BatchBuilder {
	nb := b.clone()
	nb.b.Name = name
	return nb
}

// WithConcurrency sets the concurrency ceiling.
func (b *BatchBuilder) WithConcurrency(n int) *BatchBuilder {
	nb := b.clone()
	nb.b.Concurrency = &n
	return nb
}

// WithTimeout sets the batch timeout.
func (b *BatchBuilder) WithTimeout(d time.Duration) *BatchBuilder {
	nb := b.clone()
	nb.b.Timeout = d
	return nb
}

// WithFailFast enables fail-fast mode.
func (b *BatchBuilder) WithFailFast() *BatchBuilder {
	nb := b.clone()
	nb.b.FailFast = true
	return nb
}

// WithItem appends an item.
func (b *BatchBuilder) WithItem(item batch.Item) *BatchBuilder {
	nb := b.clone()
	nb.b.Items = append(nb.b.Items, item)
	return nb
}

// WithSleep appends a sleep item.
func (b *BatchBuilder) WithSleep(name string, d time.Duration) *BatchBuilder {
	return b.WithItem(batch.Item{
		Name:  name,
		Kind:  batch.KindSleep,
		Sleep: &batch.SleepSpec{Duration: d},
	})
}

// WithFail appends a fail item.
func (b *BatchBuilder) WithFail(name, message string, fatal bool) *BatchBuilder {
	return b.WithItem(batch.Item{
		Name: name,
		Kind: batch.KindFail,
		Fail: &batch.FailSpec{Message: message, Fatal: fatal},
	})
}

// Build returns a copy of the constructed batch.
func (b *BatchBuilder) Build() *batch.Batch {
	out := b.clone().b
	return &out
}

func (b *BatchBuilder) clone() *BatchBuilder {
	nb := &BatchBuilder{b: b.b}
	nb.b.Items = slices.Clone(b.b.Items)
	if b.b.Concurrency != nil {
		n := *b.b.Concurrency
		nb.b.Concurrency = &n
	}
	return nb
}
