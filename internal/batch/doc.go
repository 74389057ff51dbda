// Package batch defines the fanout.yaml schema: a named set of independent
// work items plus the executor, report and metrics settings used to run them.
//
// Files are decoded strictly (unknown keys are errors) and validated with
// [Batch.Validate], which reports every problem at once. [Batch.ExecutorOptions]
// translates the executor settings into options for async.Run.
package batch
