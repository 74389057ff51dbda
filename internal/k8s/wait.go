package k8s

import (
	"context"
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// DefaultPollInterval is used when callers pass a zero interval.
const DefaultPollInterval = 5 * time.Second

// WaitForPodReady waits for a pod to become ready. A pod that does not
// exist yet is waited for. Authorization errors stop the wait immediately.
func (c *Client) WaitForPodReady(ctx context.Context, namespace, name string, interval, timeout time.Duration) (*corev1.Pod, error) {
	var last *corev1.Pod
	var lastErr error

	err := c.poll(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
		pod, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			lastErr = err
			return false, terminal(err)
		}

		last, lastErr = pod, nil
		return isPodReady(pod), nil
	})
	if err != nil {
		state := describePods(last)
		if state == "" && lastErr != nil {
			state = lastErr.Error()
		}
		return nil, waitError(fmt.Sprintf("pod %s/%s", namespace, name), state, err)
	}

	return last, nil
}

// WaitForPodsReady waits until at least one pod matches labelSelector and
// every matching pod is ready.
func (c *Client) WaitForPodsReady(ctx context.Context, namespace, labelSelector string, interval, timeout time.Duration) ([]corev1.Pod, error) {
	var last []corev1.Pod
	var lastErr error

	err := c.poll(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
		pods, err := c.GetPods(ctx, namespace, labelSelector)
		if err != nil {
			lastErr = err
			return false, terminal(err)
		}

		last, lastErr = pods, nil
		if len(pods) == 0 {
			return false, nil
		}
		for i := range pods {
			if !isPodReady(&pods[i]) {
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		var state string
		switch {
		case lastErr != nil:
			state = lastErr.Error()
		case len(last) == 0:
			state = "no matching pods"
		default:
			ptrs := make([]*corev1.Pod, len(last))
			for i := range last {
				ptrs[i] = &last[i]
			}
			state = describePods(ptrs...)
		}
		return nil, waitError(fmt.Sprintf("pods %q in %s", labelSelector, namespace), state, err)
	}

	return last, nil
}

func (c *Client) poll(ctx context.Context, interval, timeout time.Duration, cond wait.ConditionWithContextFunc) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		// Bounded by ctx only.
		return wait.PollUntilContextCancel(ctx, interval, true, cond)
	}
	return wait.PollUntilContextTimeout(ctx, interval, timeout, true, cond)
}

// terminal returns err if retrying cannot help, nil otherwise.
func terminal(err error) error {
	if IsAuthError(err) {
		return err
	}
	return nil
}

// IsAuthError reports whether err is an authentication or authorization
// failure from the API server.
func IsAuthError(err error) bool {
	return apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err)
}

func waitError(what, state string, err error) error {
	if IsAuthError(err) {
		return fmt.Errorf("waiting for %s: %w", what, err)
	}
	if state == "" {
		return fmt.Errorf("%s not ready: %w", what, err)
	}
	return fmt.Errorf("%s not ready (%s): %w", what, state, err)
}

// describePods summarises pod phases for error messages.
func describePods(pods ...*corev1.Pod) string {
	var parts []string
	for _, pod := range pods {
		if pod == nil {
			continue
		}
		ready := "not ready"
		if isPodReady(pod) {
			ready = "ready"
		}
		parts = append(parts, fmt.Sprintf("%s: %s, %s", pod.Name, pod.Status.Phase, ready))
	}
	return strings.Join(parts, "; ")
}

// isPodReady checks if a pod is ready.
func isPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}

	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady &&
			condition.Status == corev1.ConditionTrue {
			return true
		}
	}

	return false
}
