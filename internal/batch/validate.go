package batch

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Validate checks the batch and returns every problem found, joined.
func (b *Batch) Validate() error {
	var errs []error

	if b.Name == "" {
		errs = append(errs, errors.New("name is required"))
	} else if !isValidDNSName(b.Name) {
		errs = append(errs, errors.New("name must be DNS-safe (lowercase alphanumeric and hyphens, must start with letter)"))
	}

	if b.Concurrency != nil && *b.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d (omit it for unbounded)", *b.Concurrency))
	}
	if b.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	if b.GracePeriod < 0 {
		errs = append(errs, errors.New("gracePeriod must not be negative"))
	}
	if !b.DuplicateNames.IsValid() {
		errs = append(errs, fmt.Errorf("duplicateNames must be one of: %v", []DuplicatePolicy{DuplicatesReject, DuplicatesOverwrite}))
	}

	if b.Retry != nil {
		if b.Retry.MaxRetries < 0 {
			errs = append(errs, errors.New("retry.maxRetries must not be negative"))
		}
		if b.Retry.InitialDelay < 0 || b.Retry.MaxDelay < 0 {
			errs = append(errs, errors.New("retry delays must not be negative"))
		}
	}

	seen := make(map[string]int, len(b.Items))
	for i, item := range b.Items {
		if prev, dup := seen[item.Name]; dup && item.Name != "" && b.DuplicateNames != DuplicatesOverwrite {
			errs = append(errs, fmt.Errorf("items[%d]: duplicate name %q (first used by items[%d])", i, item.Name, prev))
		} else if !dup {
			seen[item.Name] = i
		}
		if err := item.validate(); err != nil {
			errs = append(errs, fmt.Errorf("items[%d]: %w", i, err))
		}
	}

	if !b.Report.Format.IsValid() {
		errs = append(errs, fmt.Errorf("report.format must be one of: %v", ValidFormats()))
	}
	if s3 := b.Report.S3; s3 != nil {
		if s3.Endpoint == "" {
			errs = append(errs, errors.New("report.s3.endpoint is required"))
		}
		if s3.Bucket == "" {
			errs = append(errs, errors.New("report.s3.bucket is required"))
		}
		if os.Getenv(EnvS3AccessKey) == "" {
			errs = append(errs, fmt.Errorf("%s environment variable required when report.s3 is set", EnvS3AccessKey))
		}
		if os.Getenv(EnvS3SecretKey) == "" {
			errs = append(errs, fmt.Errorf("%s environment variable required when report.s3 is set", EnvS3SecretKey))
		}
	}

	return errors.Join(errs...)
}

func (i *Item) validate() error {
	var errs []error

	if i.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !i.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("kind %q must be one of: %v", i.Kind, ValidKinds()))
		return errors.Join(errs...)
	}

	for _, kind := range i.setBlocks() {
		if kind != i.Kind {
			errs = append(errs, fmt.Errorf("%s block is not allowed for kind %s", kind, i.Kind))
		}
	}

	switch i.Kind {
	case KindSleep:
		switch {
		case i.Sleep == nil:
			errs = append(errs, errors.New("sleep block is required"))
		case i.Sleep.Duration < 0:
			errs = append(errs, errors.New("sleep.duration must not be negative"))
		}
	case KindFail:
		if i.Fail != nil && i.Fail.After < 0 {
			errs = append(errs, errors.New("fail.after must not be negative"))
		}
	case KindExec:
		if i.Exec == nil || len(i.Exec.Command) == 0 {
			errs = append(errs, errors.New("exec.command is required"))
		}
	case KindHTTP:
		errs = append(errs, i.HTTP.validate()...)
	case KindPod:
		errs = append(errs, i.Pod.validate()...)
	case KindSSH:
		errs = append(errs, i.SSH.validate()...)
	}

	return errors.Join(errs...)
}

// setBlocks returns the kinds whose blocks are present.
func (i *Item) setBlocks() []Kind {
	var kinds []Kind
	if i.Sleep != nil {
		kinds = append(kinds, KindSleep)
	}
	if i.Fail != nil {
		kinds = append(kinds, KindFail)
	}
	if i.Exec != nil {
		kinds = append(kinds, KindExec)
	}
	if i.HTTP != nil {
		kinds = append(kinds, KindHTTP)
	}
	if i.Pod != nil {
		kinds = append(kinds, KindPod)
	}
	if i.SSH != nil {
		kinds = append(kinds, KindSSH)
	}
	return kinds
}

func (h *HTTPSpec) validate() []error {
	if h == nil || h.URL == "" {
		return []error{errors.New("http.url is required")}
	}

	var errs []error
	u, err := url.Parse(h.URL)
	if err != nil {
		errs = append(errs, fmt.Errorf("http.url is invalid: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Errorf("http.url scheme must be http or https, got %q", u.Scheme))
	}
	if h.ExpectStatus != 0 && (h.ExpectStatus < 100 || h.ExpectStatus > 599) {
		errs = append(errs, fmt.Errorf("http.expectStatus %d is not a valid HTTP status", h.ExpectStatus))
	}
	return errs
}

func (p *PodSpec) validate() []error {
	if p == nil {
		return []error{errors.New("pod block is required")}
	}

	var errs []error
	switch {
	case p.Name == "" && p.Selector == "":
		errs = append(errs, errors.New("pod.name or pod.selector is required"))
	case p.Name != "" && p.Selector != "":
		errs = append(errs, errors.New("pod.name and pod.selector are mutually exclusive"))
	}
	if p.Timeout < 0 || p.Interval < 0 {
		errs = append(errs, errors.New("pod durations must not be negative"))
	}
	return errs
}

func (s *SSHSpec) validate() []error {
	if s == nil {
		return []error{errors.New("ssh block is required")}
	}

	var errs []error
	if s.Host == "" {
		errs = append(errs, errors.New("ssh.host is required"))
	}
	if s.User == "" {
		errs = append(errs, errors.New("ssh.user is required"))
	}
	if s.KeyFile == "" {
		errs = append(errs, errors.New("ssh.keyFile is required"))
	}
	if s.Command == "" {
		errs = append(errs, errors.New("ssh.command is required"))
	}
	if s.Port < 0 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("ssh.port %d is out of range", s.Port))
	}
	return errs
}

// isValidDNSName checks if a name is DNS-safe.
func isValidDNSName(name string) bool {
	if len(name) == 0 || len(name) > 63 {
		return false
	}
	if name[0] < 'a' || name[0] > 'z' {
		return false
	}
	last := name[len(name)-1]
	if (last < 'a' || last > 'z') && (last < '0' || last > '9') {
		return false
	}
	for _, c := range name {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return !strings.Contains(name, "--")
}
