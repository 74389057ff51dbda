// Package retry provides exponential backoff retry logic for transient failures.
//
// The [Do] function retries an operation with a configurable retry budget,
// initial delay, and maximum delay. It is used by the executor's per-item
// retry option and by the SSH dialer.
package retry
