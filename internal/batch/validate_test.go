package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/fanout/pkg/async"
)

func intPtr(n int) *int { return &n }

func sleepItem(name string) Item {
	return Item{Name: name, Kind: KindSleep, Sleep: &SleepSpec{Duration: time.Millisecond}}
}

func validBatch() *Batch {
	return &Batch{
		Name:  "checks",
		Items: []Item{sleepItem("a"), sleepItem("b")},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *Batch)
		wantErr string
	}{
		{name: "valid", mutate: func(*Batch) {}},
		{name: "no items is allowed", mutate: func(b *Batch) { b.Items = nil }},
		{name: "missing name", mutate: func(b *Batch) { b.Name = "" }, wantErr: "name is required"},
		{name: "uppercase name", mutate: func(b *Batch) { b.Name = "Checks" }, wantErr: "DNS-safe"},
		{name: "double hyphen", mutate: func(b *Batch) { b.Name = "a--b" }, wantErr: "DNS-safe"},
		{name: "zero concurrency", mutate: func(b *Batch) { b.Concurrency = intPtr(0) }, wantErr: "concurrency must be positive"},
		{name: "negative concurrency", mutate: func(b *Batch) { b.Concurrency = intPtr(-3) }, wantErr: "concurrency must be positive"},
		{name: "negative timeout", mutate: func(b *Batch) { b.Timeout = -time.Second }, wantErr: "timeout must not be negative"},
		{name: "negative grace", mutate: func(b *Batch) { b.GracePeriod = -time.Second }, wantErr: "gracePeriod"},
		{name: "unknown duplicate policy", mutate: func(b *Batch) { b.DuplicateNames = "merge" }, wantErr: "duplicateNames"},
		{name: "negative retries", mutate: func(b *Batch) { b.Retry = &Retry{MaxRetries: -1} }, wantErr: "retry.maxRetries"},
		{name: "negative retry delay", mutate: func(b *Batch) { b.Retry = &Retry{InitialDelay: -1} }, wantErr: "retry delays"},
		{name: "duplicate items rejected", mutate: func(b *Batch) { b.Items[1].Name = "a" }, wantErr: `duplicate name "a"`},
		{name: "duplicate items overwrite", mutate: func(b *Batch) {
			b.Items[1].Name = "a"
			b.DuplicateNames = DuplicatesOverwrite
		}},
		{name: "item without name", mutate: func(b *Batch) { b.Items[0].Name = "" }, wantErr: "items[0]: name is required"},
		{name: "unknown kind", mutate: func(b *Batch) { b.Items[0].Kind = "teleport" }, wantErr: "must be one of"},
		{name: "block for another kind", mutate: func(b *Batch) {
			b.Items[0].Exec = &ExecSpec{Command: []string{"true"}}
		}, wantErr: "exec block is not allowed for kind sleep"},
		{name: "sleep without block", mutate: func(b *Batch) { b.Items[0].Sleep = nil }, wantErr: "sleep block is required"},
		{name: "fail without block", mutate: func(b *Batch) { b.Items[0] = Item{Name: "f", Kind: KindFail} }},
		{name: "exec without command", mutate: func(b *Batch) {
			b.Items[0] = Item{Name: "e", Kind: KindExec, Exec: &ExecSpec{}}
		}, wantErr: "exec.command is required"},
		{name: "http without url", mutate: func(b *Batch) {
			b.Items[0] = Item{Name: "h", Kind: KindHTTP}
		}, wantErr: "http.url is required"},
		{name: "http bad scheme", mutate: func(b *Batch) {
			b.Items[0] = Item{Name: "h", Kind: KindHTTP, HTTP: &HTTPSpec{URL: "ftp://example.com"}}
		}, wantErr: "scheme must be http or https"},
		{name: "http bad status", mutate: func(b *Batch) {
			b.Items[0] = Item{Name: "h", Kind: KindHTTP, HTTP: &HTTPSpec{URL: "http://x", ExpectStatus: 42}}
		}, wantErr: "not a valid HTTP status"},
		{name: "pod needs name or selector", mutate: func(b *Batch) {
			b.Items[0] = Item{Name: "p", Kind: KindPod, Pod: &PodSpec{}}
		}, wantErr: "pod.name or pod.selector is required"},
		{name: "pod name and selector", mutate: func(b *Batch) {
			b.Items[0] = Item{Name: "p", Kind: KindPod, Pod: &PodSpec{Name: "x", Selector: "app=x"}}
		}, wantErr: "mutually exclusive"},
		{name: "ssh missing fields", mutate: func(b *Batch) {
			b.Items[0] = Item{Name: "s", Kind: KindSSH, SSH: &SSHSpec{Host: "h", Port: 70000}}
		}, wantErr: "ssh.user is required"},
		{name: "unknown format", mutate: func(b *Batch) { b.Report.Format = "xml" }, wantErr: "report.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBatch()
			tt.mutate(b)

			err := b.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	b := &Batch{
		Concurrency: intPtr(0),
		Timeout:     -time.Second,
		Items:       []Item{{Kind: KindExec}},
	}

	err := b.Validate()
	require.Error(t, err)
	for _, want := range []string{"name is required", "concurrency", "timeout", "items[0]: name is required", "exec.command"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_S3RequiresCredentials(t *testing.T) {
	b := validBatch()
	b.Report.S3 = &S3Target{Endpoint: "https://fsn1.your-objectstorage.com", Bucket: "reports"}

	t.Setenv(EnvS3AccessKey, "")
	t.Setenv(EnvS3SecretKey, "")
	err := b.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvS3AccessKey)
	assert.Contains(t, err.Error(), EnvS3SecretKey)

	t.Setenv(EnvS3AccessKey, "access")
	t.Setenv(EnvS3SecretKey, "secret")
	assert.NoError(t, b.Validate())

	b.Report.S3 = &S3Target{}
	err = b.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report.s3.endpoint is required")
	assert.Contains(t, err.Error(), "report.s3.bucket is required")
}

func TestExecutorOptions(t *testing.T) {
	t.Parallel()

	b := validBatch()
	b.Concurrency = intPtr(1)
	b.Timeout = time.Minute
	b.GracePeriod = time.Second
	b.FailFast = true
	b.Retry = &Retry{MaxRetries: 1, InitialDelay: time.Millisecond}
	opts := b.ExecutorOptions()
	assert.Len(t, opts, 6)

	// Options are accepted by the executor and name the batch.
	out, err := async.Run(context.Background(), []async.WorkItem[string]{{
		Name: "x",
		Run:  func(context.Context) (string, error) { return "ok", nil },
	}}, opts...)
	require.NoError(t, err)
	assert.Equal(t, "checks", out.Name)

	assert.Len(t, validBatch().ExecutorOptions(), 1)
}

func TestExecutorOptions_Overwrite(t *testing.T) {
	t.Parallel()

	b := validBatch()
	b.DuplicateNames = DuplicatesOverwrite
	run := func(context.Context) (string, error) { return "", nil }

	_, err := async.Run(context.Background(), []async.WorkItem[string]{
		{Name: "same", Run: run},
		{Name: "same", Run: run},
	}, b.ExecutorOptions()...)
	assert.NoError(t, err)
}

func TestExecutorOptions_RetryBacksOff(t *testing.T) {
	t.Parallel()

	b, err := LoadFromBytes([]byte(`
name: checks
retry: {maxRetries: 1}
items:
  - name: nap
    kind: sleep
    sleep: {duration: 1ms}
`))
	require.NoError(t, err)

	var calls []time.Time
	out, err := async.Run(context.Background(), []async.WorkItem[string]{{
		Name: "flaky",
		Run: func(context.Context) (string, error) {
			calls = append(calls, time.Now())
			return "", errors.New("connection refused")
		},
	}}, b.ExecutorOptions()...)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Results["flaky"].Attempts)

	require.Len(t, calls, 2)
	assert.GreaterOrEqual(t, calls[1].Sub(calls[0]), 900*time.Millisecond,
		"a batch without initialDelay should wait between attempts")
}

func TestKinds(t *testing.T) {
	t.Parallel()

	b := &Batch{Items: []Item{sleepItem("a"), {Name: "b", Kind: KindHTTP}}}
	assert.Equal(t, map[string]Kind{"a": KindSleep, "b": KindHTTP}, b.Kinds())
}

func TestKindAndFormatValidity(t *testing.T) {
	t.Parallel()

	for _, k := range ValidKinds() {
		assert.True(t, k.IsValid(), k)
	}
	assert.False(t, Kind("").IsValid())
	for _, f := range ValidFormats() {
		assert.True(t, f.IsValid(), f)
	}
	assert.True(t, Format("").IsValid())
	assert.False(t, Format("csv").IsValid())
	assert.True(t, DuplicatePolicy("").IsValid())
	assert.False(t, DuplicatePolicy("merge").IsValid())
}
