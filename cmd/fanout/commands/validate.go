package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/fanout/cmd/fanout/handlers"
)

// Validate returns the command that checks a batch file without running it.
func Validate() *cobra.Command {
	var batchPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a batch file without running it",
		Long: `Check a batch file without running it.

Every item is parsed and prepared exactly as 'fanout run' would, so
unknown kinds, missing fields and unreadable SSH keys are reported
up front. Nothing is executed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Validate(cmd.Context(), batchPath)
		},
	}

	cmd.Flags().StringVarP(&batchPath, "file", "f", "", "Path to batch file (default: fanout.yaml)")

	return cmd
}
