package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/fanout/cmd/fanout/handlers"
	"github.com/imamik/fanout/internal/batch"
)

// Init returns the command for interactively creating a batch file.
//
// Flags:
//
//	--output, -o: Path to output file (default "fanout.yaml")
//	--force: Overwrite an existing file
func Init() *cobra.Command {
	var (
		outputPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a batch file",
		Long: `Interactively create a batch file.

This command asks for the batch name, the concurrency ceiling, a timeout,
the failure mode and which kinds of example items to include. Edit the
generated file to describe your own work.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath, force)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", batch.DefaultFilename, "Output file path")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}
