package work

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/fanout/internal/batch"
	"github.com/imamik/fanout/internal/k8s"
	"github.com/imamik/fanout/internal/platform/ssh"
	"github.com/imamik/fanout/pkg/async"
)

const (
	defaultFailMessage  = "failed on purpose"
	defaultPodNamespace = "default"
	defaultPodInterval  = 2 * time.Second
	maxHTTPBody         = 1024
	execWaitDelay       = time.Second
)

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newSleepRunner(item batch.Item, _ *Env) (Runner, error) {
	if item.Sleep == nil {
		return nil, errors.New("sleep block is required")
	}
	d := item.Sleep.Duration

	return RunnerFunc(func(ctx context.Context) (string, error) {
		if err := sleep(ctx, d); err != nil {
			return "", err
		}
		return fmt.Sprintf("slept %s", d), nil
	}), nil
}

func newFailRunner(item batch.Item, _ *Env) (Runner, error) {
	spec := batch.FailSpec{}
	if item.Fail != nil {
		spec = *item.Fail
	}
	if spec.Message == "" {
		spec.Message = defaultFailMessage
	}

	return RunnerFunc(func(ctx context.Context) (string, error) {
		if err := sleep(ctx, spec.After); err != nil {
			return "", err
		}
		err := errors.New(spec.Message)
		if spec.Fatal {
			return "", async.Fatal(err)
		}
		return "", err
	}), nil
}

func newExecRunner(item batch.Item, _ *Env) (Runner, error) {
	if item.Exec == nil || len(item.Exec.Command) == 0 {
		return nil, errors.New("exec.command is required")
	}
	spec := *item.Exec

	return RunnerFunc(func(ctx context.Context) (string, error) {
		cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
		cmd.Dir = spec.Dir
		if len(spec.Env) > 0 {
			cmd.Env = append(os.Environ(), spec.Env...)
		}
		// Do not hang on grandchildren holding the output pipe.
		cmd.WaitDelay = execWaitDelay

		logr.FromContextOrDiscard(ctx).V(1).Info("running command", "command", spec.Command)
		output, err := cmd.CombinedOutput()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return string(output), ctxErr
		}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return string(output), fmt.Errorf("%s exited with status %d: %s",
					spec.Command[0], exitErr.ExitCode(), lastLine(string(output)))
			}
			return string(output), fmt.Errorf("failed to run %s: %w", spec.Command[0], err)
		}
		return string(output), nil
	}), nil
}

func newHTTPRunner(item batch.Item, env *Env) (Runner, error) {
	if item.HTTP == nil || item.HTTP.URL == "" {
		return nil, errors.New("http.url is required")
	}
	url := item.HTTP.URL
	want := item.HTTP.ExpectStatus
	if want == 0 {
		want = http.StatusOK
	}
	client := env.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return RunnerFunc(func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", async.Fatal(fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("User-Agent", "fanout")

		resp, err := client.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", fmt.Errorf("GET %s: %w", url, err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxHTTPBody))
		if resp.StatusCode != want {
			return string(body), fmt.Errorf("GET %s: status %d, want %d", url, resp.StatusCode, want)
		}
		return fmt.Sprintf("%s %s", resp.Status, strings.TrimSpace(string(body))), nil
	}), nil
}

func newPodRunner(item batch.Item, env *Env) (Runner, error) {
	if item.Pod == nil || (item.Pod.Name == "" && item.Pod.Selector == "") {
		return nil, errors.New("pod.name or pod.selector is required")
	}
	if env.PodWaiter == nil {
		return nil, errors.New("no Kubernetes client configured")
	}
	spec := *item.Pod
	if spec.Namespace == "" {
		spec.Namespace = defaultPodNamespace
	}
	if spec.Interval == 0 {
		spec.Interval = defaultPodInterval
	}

	return RunnerFunc(func(ctx context.Context) (string, error) {
		waiter, err := env.PodWaiter()
		if err != nil {
			// Every pod item would fail the same way.
			return "", async.Fatal(fmt.Errorf("failed to create Kubernetes client: %w", err))
		}

		if spec.Name != "" {
			pod, err := waiter.WaitForPodReady(ctx, spec.Namespace, spec.Name, spec.Interval, spec.Timeout)
			if err != nil {
				return "", podError(ctx, err)
			}
			return fmt.Sprintf("pod %s/%s ready on %s", pod.Namespace, pod.Name, pod.Spec.NodeName), nil
		}

		pods, err := waiter.WaitForPodsReady(ctx, spec.Namespace, spec.Selector, spec.Interval, spec.Timeout)
		if err != nil {
			return "", podError(ctx, err)
		}
		return fmt.Sprintf("%d pod(s) matching %q ready in %s", len(pods), spec.Selector, spec.Namespace), nil
	}), nil
}

func podError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if k8s.IsAuthError(err) {
		return async.Fatal(err)
	}
	return err
}

func newSSHRunner(item batch.Item, env *Env) (Runner, error) {
	if item.SSH == nil {
		return nil, errors.New("ssh block is required")
	}
	if env.SSHClient == nil || env.ReadKey == nil {
		return nil, errors.New("no SSH client configured")
	}
	spec := *item.SSH

	key, err := env.ReadKey(spec.KeyFile)
	if err != nil {
		return nil, err
	}
	client, err := env.SSHClient(&ssh.Config{
		Host:       spec.Host,
		Port:       spec.Port,
		User:       spec.User,
		PrivateKey: key,
	})
	if err != nil {
		return nil, err
	}

	return RunnerFunc(func(ctx context.Context) (string, error) {
		output, err := client.Execute(ctx, spec.Command)
		if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
			return output, ctxErr
		}
		return output, err
	}), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
