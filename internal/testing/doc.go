// Package testing provides test utilities, builders, and fixtures shared by
// the fanout test suites.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - BatchBuilder: Fluent builder for creating batch definitions
//   - MockPodWaiter, MockCommander, MockUploader: testify mocks for external collaborators
//   - ReadyPod, PendingPod: pod fixtures
//
// Usage:
//
//	b := testing.NewBatchBuilder().
//	    WithName("rollout").
//	    WithSleep("warmup", 10*time.Millisecond).
//	    Build()
package testing
