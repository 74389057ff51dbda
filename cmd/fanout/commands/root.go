// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"flag"
	"os"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Root returns the root command for the fanout CLI.
//
// The root command owns the logging flags (--zap-log-level, --zap-devel, ...)
// and installs the logger before any subcommand runs.
func Root() *cobra.Command {
	opts := zap.Options{
		Development: os.Getenv("DEBUG") == "true",
	}

	cmd := &cobra.Command{
		Use:           "fanout",
		Short:         "Run independent work items in parallel",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
		},
	}

	goFlags := flag.NewFlagSet("fanout", flag.ContinueOnError)
	opts.BindFlags(goFlags)
	cmd.PersistentFlags().AddGoFlagSet(goFlags)

	cmd.AddCommand(Run())
	cmd.AddCommand(Validate())
	cmd.AddCommand(Init())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
