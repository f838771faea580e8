// Package cli wires the poabatch commands: run (consensus/MSA generation)
// and sizes (batch partition inspection).
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the poabatch CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "poabatch",
		Short: "Batched partial-order-alignment consensus and MSA",
		Long: `poabatch computes consensus sequences or multiple sequence alignments
for a collection of independent sequence groups, packing groups into
capacity-bound batches so every input ends in a definite disposition:
processed in some batch, or skipped with a diagnostic.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(opts.Verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSizesCommand(opts))

	return cmd
}

// configureLogging points slog at stderr so diagnostics never mix with
// result output on stdout.
func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
