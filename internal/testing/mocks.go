package testing

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	corev1 "k8s.io/api/core/v1"
)

// MockPodWaiter is a mock implementation of the work.PodWaiter interface.
type MockPodWaiter struct {
	mock.Mock
}

// WaitForPodReady waits for a mock pod.
func (m *MockPodWaiter) WaitForPodReady(ctx context.Context, namespace, name string, interval, timeout time.Duration) (*corev1.Pod, error) {
	args := m.Called(ctx, namespace, name, interval, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*corev1.Pod), args.Error(1)
}

// WaitForPodsReady waits for mock pods matching a selector.
func (m *MockPodWaiter) WaitForPodsReady(ctx context.Context, namespace, labelSelector string, interval, timeout time.Duration) ([]corev1.Pod, error) {
	args := m.Called(ctx, namespace, labelSelector, interval, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]corev1.Pod), args.Error(1)
}

// MockCommander is a mock implementation of the work.Commander interface.
type MockCommander struct {
	mock.Mock
}

// Execute runs a mock remote command.
func (m *MockCommander) Execute(ctx context.Context, command string) (string, error) {
	args := m.Called(ctx, command)
	return args.String(0), args.Error(1)
}

// MockUploader is a mock report uploader backed by an S3-compatible store.
type MockUploader struct {
	mock.Mock
}

// EnsureBucket pretends to create the bucket.
func (m *MockUploader) EnsureBucket(ctx context.Context, bucket string) error {
	args := m.Called(ctx, bucket)
	return args.Error(0)
}

// PutObject records an upload.
func (m *MockUploader) PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error {
	args := m.Called(ctx, bucket, key, contentType, data)
	return args.Error(0)
}
