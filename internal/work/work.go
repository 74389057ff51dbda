package work

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/imamik/fanout/internal/batch"
	"github.com/imamik/fanout/internal/k8s"
	"github.com/imamik/fanout/internal/platform/ssh"
	"github.com/imamik/fanout/pkg/async"
)

// Runner performs one item's work and returns its output.
type Runner interface {
	Run(ctx context.Context) (string, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) (string, error)

// Run calls f(ctx).
func (f RunnerFunc) Run(ctx context.Context) (string, error) {
	return f(ctx)
}

// Factory builds the Runner for an item of one kind.
type Factory func(item batch.Item, env *Env) (Runner, error)

// PodWaiter waits for pods to become ready. *k8s.Client implements it.
type PodWaiter interface {
	WaitForPodReady(ctx context.Context, namespace, name string, interval, timeout time.Duration) (*corev1.Pod, error)
	WaitForPodsReady(ctx context.Context, namespace, labelSelector string, interval, timeout time.Duration) ([]corev1.Pod, error)
}

// Commander runs a command remotely. *ssh.Client implements it.
type Commander interface {
	Execute(ctx context.Context, command string) (string, error)
}

// Env carries the collaborators runners use.
type Env struct {
	// PodWaiter is called lazily, the first time a pod item runs.
	PodWaiter func() (PodWaiter, error)

	HTTPClient *http.Client

	// SSHClient creates a client per ssh item.
	SSHClient func(cfg *ssh.Config) (Commander, error)

	// ReadKey loads an SSH private key.
	ReadKey func(path string) ([]byte, error)
}

// DefaultEnv wires the real Kubernetes, HTTP and SSH clients. The
// Kubernetes client is only created if a pod item runs.
func DefaultEnv(kubeconfig string) *Env {
	return &Env{
		PodWaiter: sync.OnceValues(func() (PodWaiter, error) {
			c, err := k8s.NewClient(kubeconfig)
			if err != nil {
				return nil, err
			}
			return c, nil
		}),
		HTTPClient: &http.Client{},
		SSHClient: func(cfg *ssh.Config) (Commander, error) {
			return ssh.NewClient(cfg)
		},
		ReadKey: ssh.LoadPrivateKey,
	}
}

var registry = map[batch.Kind]Factory{
	batch.KindSleep: newSleepRunner,
	batch.KindFail:  newFailRunner,
	batch.KindExec:  newExecRunner,
	batch.KindHTTP:  newHTTPRunner,
	batch.KindPod:   newPodRunner,
	batch.KindSSH:   newSSHRunner,
}

// Kinds returns the registered kinds in sorted order.
func Kinds() []batch.Kind {
	kinds := make([]batch.Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Build creates one work item per batch item, in order. Every item that
// cannot be built is reported, joined.
func Build(b *batch.Batch, env *Env) ([]async.WorkItem[string], error) {
	if env == nil {
		env = DefaultEnv(b.Kubeconfig)
	}

	items := make([]async.WorkItem[string], 0, len(b.Items))
	var errs []error
	for i, item := range b.Items {
		factory, ok := registry[item.Kind]
		if !ok {
			errs = append(errs, fmt.Errorf("items[%d] %q: unknown kind %q", i, item.Name, item.Kind))
			continue
		}

		runner, err := factory(item, env)
		if err != nil {
			errs = append(errs, fmt.Errorf("items[%d] %q: %w", i, item.Name, err))
			continue
		}
		items = append(items, async.WorkItem[string]{Name: item.Name, Run: runner.Run})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return items, nil
}
