package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imamik/fanout/cmd/fanout/handlers"
	"github.com/imamik/fanout/internal/batch"
)

// Run returns the command that executes a batch file.
//
// Flags override the corresponding batch file settings:
//
//	--file, -f: Path to the batch file (default: auto-detect fanout.yaml)
//	--concurrency, -c: Maximum items in flight (0 is rejected)
//	--timeout: Whole-batch timeout
//	--fail-fast: Cancel the remaining items on the first failure
//	--output, -o: Report format (table, json, yaml)
//	--report: Also write the report to this file
//	--no-tui: Log progress instead of showing the dashboard
//
// Environment variables:
//
//	KUBECONFIG: Kubernetes client config for pod items
//	FANOUT_S3_ACCESS_KEY, FANOUT_S3_SECRET_KEY: credentials for report upload
func Run() *cobra.Command {
	var (
		opts        handlers.RunOptions
		concurrency int
		output      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a batch file",
		Long: `Run every item of a batch file concurrently and wait for all of them.

Each item is independent. By default a failing item does not affect the
others; with --fail-fast the first failure cancels everything still running.
When the batch is cancelled (Ctrl-C) or times out, items that did not finish
are reported as not completed.

If no batch file is given, fanout looks for fanout.yaml in the current
directory and its parents. Use 'fanout init' to create one.

The command exits with status 1 if any item failed or did not complete.

Examples:
  # Run fanout.yaml from the current directory
  fanout run

  # At most 2 items at a time, give up after 5 minutes
  fanout run -f checks.yaml -c 2 --timeout 5m

  # Machine-readable report, no dashboard
  fanout run -o json --no-tui > report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("concurrency") {
				opts.Concurrency = &concurrency
			}
			if flags.Changed("timeout") {
				timeout, _ := flags.GetDuration("timeout")
				opts.Timeout = &timeout
			}
			if output != "" {
				format := batch.Format(output)
				if !format.IsValid() {
					return fmt.Errorf("invalid --output %q (expected one of %v)", output, batch.ValidFormats())
				}
				opts.Output = format
			}
			return handlers.Run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.BatchPath, "file", "f", "", "Path to batch file (default: fanout.yaml)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Maximum number of items running at once")
	cmd.Flags().Duration("timeout", 0, "Timeout for the whole batch (e.g. 30s, 5m)")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "Cancel remaining items on the first failure")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Report format: table, json or yaml")
	cmd.Flags().StringVar(&opts.ReportFile, "report", "", "Also write the report to this file")
	cmd.Flags().BoolVar(&opts.NoTUI, "no-tui", false, "Disable the interactive dashboard")

	return cmd
}
