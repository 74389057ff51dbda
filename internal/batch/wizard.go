package batch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
)

// WizardResult holds the user's choices from the init wizard.
type WizardResult struct {
	Name        string
	Concurrency int
	Timeout     time.Duration
	FailFast    bool
	Kinds       []Kind
	HealthURL   string
}

// RunWizard asks for the basics of a new batch file.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{
		Concurrency: 4,
		Timeout:     5 * time.Minute,
		Kinds:       []Kind{KindSleep, KindExec},
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Batch name").
				Description("Used in logs, metrics and report keys (DNS-safe, lowercase)").
				Placeholder("rollout-checks").
				Value(&result.Name).
				Validate(validateBatchName),
		),

		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Concurrency").
				Description("How many items may run at the same time").
				Options(
					huh.NewOption("Unbounded", 0),
					huh.NewOption("2 at a time", 2),
					huh.NewOption("4 at a time", 4),
					huh.NewOption("8 at a time", 8),
					huh.NewOption("16 at a time", 16),
				).
				Value(&result.Concurrency),

			huh.NewSelect[time.Duration]().
				Title("Timeout").
				Description("Items still running after this are cancelled").
				Options(
					huh.NewOption("None", time.Duration(0)),
					huh.NewOption("1 minute", time.Minute),
					huh.NewOption("5 minutes", 5*time.Minute),
					huh.NewOption("15 minutes", 15*time.Minute),
				).
				Value(&result.Timeout),

			huh.NewConfirm().
				Title("Fail fast?").
				Description("Stop the whole batch on the first failed item").
				Value(&result.FailFast),
		),

		huh.NewGroup(
			huh.NewMultiSelect[Kind]().
				Title("Example items").
				Description("Scaffold one item of each selected kind").
				Options(
					huh.NewOption("sleep - wait for a duration", KindSleep),
					huh.NewOption("exec - run a local command", KindExec),
					huh.NewOption("http - probe a URL", KindHTTP),
					huh.NewOption("pod - wait for a Kubernetes pod", KindPod),
				).
				Value(&result.Kinds),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Health check URL").
				Description("Only used by the http example").
				Placeholder("https://example.com/healthz").
				Value(&result.HealthURL).
				Validate(validateHealthURL),
		).WithHideFunc(func() bool {
			return !result.hasKind(KindHTTP)
		}),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	return result, nil
}

func (r *WizardResult) hasKind(k Kind) bool {
	for _, kind := range r.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// ToBatch converts the wizard result to a Batch with one example item per
// selected kind.
func (r *WizardResult) ToBatch() *Batch {
	b := &Batch{
		Name:     strings.ToLower(r.Name),
		Timeout:  r.Timeout,
		FailFast: r.FailFast,
		Report:   Report{Format: FormatTable},
	}
	if r.Concurrency > 0 {
		c := r.Concurrency
		b.Concurrency = &c
	}

	for _, kind := range r.Kinds {
		switch kind {
		case KindSleep:
			b.Items = append(b.Items, Item{Name: "warmup", Kind: KindSleep, Sleep: &SleepSpec{Duration: 2 * time.Second}})
		case KindExec:
			b.Items = append(b.Items, Item{Name: "uname", Kind: KindExec, Exec: &ExecSpec{Command: []string{"uname", "-a"}}})
		case KindHTTP:
			healthURL := r.HealthURL
			if healthURL == "" {
				healthURL = "https://example.com/healthz"
			}
			b.Items = append(b.Items, Item{Name: "health", Kind: KindHTTP, HTTP: &HTTPSpec{URL: healthURL, ExpectStatus: 200}})
		case KindPod:
			b.Items = append(b.Items, Item{Name: "coredns", Kind: KindPod, Pod: &PodSpec{
				Namespace: "kube-system",
				Selector:  "k8s-app=kube-dns",
				Timeout:   2 * time.Minute,
			}})
		}
	}

	return b
}

func validateBatchName(s string) error {
	if s == "" {
		return fmt.Errorf("batch name is required")
	}
	if len(s) > 63 {
		return fmt.Errorf("batch name must be 63 characters or less")
	}
	if !isValidDNSName(strings.ToLower(s)) {
		return fmt.Errorf("batch name can only contain lowercase letters, numbers, and single hyphens, and must start with a letter")
	}
	return nil
}

func validateHealthURL(s string) error {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL (expected https://host/path)")
	}
	return nil
}
