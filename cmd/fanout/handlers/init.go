package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/imamik/fanout/internal/batch"
)

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// runWizard runs the interactive wizard.
	runWizard = batch.RunWizard

	// saveBatch writes the batch to a file.
	saveBatch = batch.Save
)

// Init runs the batch wizard and writes the result to a file.
func Init(ctx context.Context, outputPath string, force bool) error {
	if fileExists(outputPath) && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", outputPath)
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	b := result.ToBatch()
	if err := b.Validate(); err != nil {
		return fmt.Errorf("wizard produced an invalid batch: %w", err)
	}

	if err := saveBatch(b, outputPath); err != nil {
		return fmt.Errorf("failed to write batch file: %w", err)
	}

	printInitSuccess(outputPath, b)
	return nil
}

// printWelcome prints the welcome message.
func printWelcome() {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "fanout - run independent work items in parallel")
	fmt.Fprintln(stdout, "===============================================")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "This wizard creates a starter batch file with a few example items.")
	fmt.Fprintln(stdout)
}

// printInitSuccess prints the summary and next steps.
func printInitSuccess(outputPath string, b *batch.Batch) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Batch file saved!")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  File: %s\n", outputPath)
	fmt.Fprintln(stdout)

	printPlan(stdout, b)

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Next steps")
	fmt.Fprintln(stdout, "----------")
	fmt.Fprintf(stdout, "  1. Edit %s and replace the example items\n", outputPath)
	fmt.Fprintf(stdout, "  2. fanout validate -f %s\n", outputPath)
	fmt.Fprintf(stdout, "  3. fanout run -f %s\n", outputPath)
}
