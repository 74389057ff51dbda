package batch

import (
	"time"

	"github.com/imamik/fanout/pkg/async"
)

// Batch is the top-level fanout.yaml document.
type Batch struct {
	// Name identifies the batch in logs, metrics and report keys.
	// Must be DNS-safe.
	Name string `yaml:"name"`

	// Concurrency caps how many items run at once. Omitted means unbounded.
	Concurrency *int `yaml:"concurrency,omitempty"`

	// Timeout bounds the whole batch. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// GracePeriod is how long in-flight items may keep running after the
	// batch is cancelled.
	GracePeriod time.Duration `yaml:"gracePeriod,omitempty"`

	// FailFast aborts the batch on the first failed item.
	FailFast bool `yaml:"failFast,omitempty"`

	// DuplicateNames is "reject" (default) or "overwrite".
	DuplicateNames DuplicatePolicy `yaml:"duplicateNames,omitempty"`

	// Kubeconfig is used by pod items. Falls back to KUBECONFIG and
	// ~/.kube/config.
	Kubeconfig string `yaml:"kubeconfig,omitempty"`

	Retry   *Retry  `yaml:"retry,omitempty"`
	Items   []Item  `yaml:"items"`
	Report  Report  `yaml:"report,omitempty"`
	Metrics Metrics `yaml:"metrics,omitempty"`
}

// DuplicatePolicy is the YAML form of async.DuplicatePolicy.
type DuplicatePolicy string

const (
	DuplicatesReject    DuplicatePolicy = "reject"
	DuplicatesOverwrite DuplicatePolicy = "overwrite"
)

// IsValid returns true for known policies and the empty default.
func (p DuplicatePolicy) IsValid() bool {
	switch p {
	case "", DuplicatesReject, DuplicatesOverwrite:
		return true
	default:
		return false
	}
}

// Retry configures per-item retries with exponential backoff.
type Retry struct {
	MaxRetries   int           `yaml:"maxRetries"`
	InitialDelay time.Duration `yaml:"initialDelay,omitempty"`
	MaxDelay     time.Duration `yaml:"maxDelay,omitempty"`
}

// Kind selects the work an item performs.
type Kind string

const (
	KindSleep Kind = "sleep"
	KindFail  Kind = "fail"
	KindExec  Kind = "exec"
	KindHTTP  Kind = "http"
	KindPod   Kind = "pod"
	KindSSH   Kind = "ssh"
)

// ValidKinds returns all supported kinds.
func ValidKinds() []Kind {
	return []Kind{KindSleep, KindFail, KindExec, KindHTTP, KindPod, KindSSH}
}

// IsValid returns true if the kind is supported.
func (k Kind) IsValid() bool {
	switch k {
	case KindSleep, KindFail, KindExec, KindHTTP, KindPod, KindSSH:
		return true
	default:
		return false
	}
}

// Item is one unit of work. Exactly the block matching Kind must be set.
type Item struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	Pod   *PodSpec   `yaml:"pod,omitempty"`
	HTTP  *HTTPSpec  `yaml:"http,omitempty"`
	Exec  *ExecSpec  `yaml:"exec,omitempty"`
	SSH   *SSHSpec   `yaml:"ssh,omitempty"`
	Sleep *SleepSpec `yaml:"sleep,omitempty"`
	Fail  *FailSpec  `yaml:"fail,omitempty"`
}

// PodSpec waits for a single pod or every pod matching a label selector to
// become Ready.
type PodSpec struct {
	// Namespace defaults to "default".
	Namespace string `yaml:"namespace,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Selector  string `yaml:"selector,omitempty"`

	Timeout  time.Duration `yaml:"timeout,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
}

// HTTPSpec probes a URL with GET.
type HTTPSpec struct {
	URL string `yaml:"url"`
	// ExpectStatus defaults to 200.
	ExpectStatus int `yaml:"expectStatus,omitempty"`
}

// ExecSpec runs a local command.
type ExecSpec struct {
	Command []string `yaml:"command"`
	Dir     string   `yaml:"dir,omitempty"`
	Env     []string `yaml:"env,omitempty"`
}

// SSHSpec runs a command on a remote host.
type SSHSpec struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port,omitempty"`
	User    string `yaml:"user"`
	KeyFile string `yaml:"keyFile"`
	Command string `yaml:"command"`
}

// SleepSpec waits for Duration.
type SleepSpec struct {
	Duration time.Duration `yaml:"duration"`
}

// FailSpec fails after waiting After. Fatal failures abort the whole batch.
type FailSpec struct {
	Message string        `yaml:"message,omitempty"`
	After   time.Duration `yaml:"after,omitempty"`
	Fatal   bool          `yaml:"fatal,omitempty"`
}

// Format is a report output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ValidFormats returns all report formats.
func ValidFormats() []Format {
	return []Format{FormatTable, FormatJSON, FormatYAML}
}

// IsValid returns true for known formats and the empty default.
func (f Format) IsValid() bool {
	switch f {
	case "", FormatTable, FormatJSON, FormatYAML:
		return true
	default:
		return false
	}
}

// Report controls where the run report goes.
type Report struct {
	// Format defaults to table.
	Format Format    `yaml:"format,omitempty"`
	File   string    `yaml:"file,omitempty"`
	S3     *S3Target `yaml:"s3,omitempty"`
}

// S3Target uploads the report to an S3-compatible bucket.
// Requires FANOUT_S3_ACCESS_KEY and FANOUT_S3_SECRET_KEY.
type S3Target struct {
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region,omitempty"`
	Bucket   string `yaml:"bucket"`
	// Key may reference {{batch}} and {{id}}.
	Key string `yaml:"key,omitempty"`
}

// Metrics controls Prometheus export.
type Metrics struct {
	// Textfile is written in the node-exporter textfile format after the run.
	Textfile string `yaml:"textfile,omitempty"`
}

// Credential environment variables.
const (
	EnvS3AccessKey = "FANOUT_S3_ACCESS_KEY"
	EnvS3SecretKey = "FANOUT_S3_SECRET_KEY"
)

// ReportFormat returns the configured format or table.
func (b *Batch) ReportFormat() Format {
	if b.Report.Format == "" {
		return FormatTable
	}
	return b.Report.Format
}

// ExecutorOptions translates executor settings into async.Run options.
func (b *Batch) ExecutorOptions() []async.Option {
	opts := []async.Option{async.WithName(b.Name)}
	if b.Concurrency != nil {
		opts = append(opts, async.WithConcurrency(*b.Concurrency))
	}
	if b.Timeout > 0 {
		opts = append(opts, async.WithTimeout(b.Timeout))
	}
	if b.GracePeriod > 0 {
		opts = append(opts, async.WithGracePeriod(b.GracePeriod))
	}
	if b.FailFast {
		opts = append(opts, async.WithFailFast())
	}
	if b.DuplicateNames == DuplicatesOverwrite {
		opts = append(opts, async.WithDuplicateNames(async.DuplicatesOverwrite))
	}
	if b.Retry != nil {
		opts = append(opts, async.WithRetry(b.Retry.MaxRetries, b.Retry.InitialDelay, b.Retry.MaxDelay))
	}
	return opts
}

// Kinds maps item names to their kinds.
func (b *Batch) Kinds() map[string]Kind {
	kinds := make(map[string]Kind, len(b.Items))
	for _, item := range b.Items {
		kinds[item.Name] = item.Kind
	}
	return kinds
}
