package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelbio/poabatch/internal/align"
	"github.com/kestrelbio/poabatch/internal/batch"
	"github.com/kestrelbio/poabatch/internal/poa"
	"github.com/kestrelbio/poabatch/internal/report"
	"github.com/kestrelbio/poabatch/internal/scheduler"
	"github.com/kestrelbio/poabatch/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	MSA         bool
	Banded      bool
	AllFASTA    bool
	MaxWindows  int
	GraphOutput string
	Database    string
	ParamsPath  string
	Format      string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <input>...",
		Short: "Compute consensus or MSA for all input groups",
		Long: `Compute consensus (default) or MSA for every group in the input.

The input is either a windows file (a sequence-count line followed by that
many sequence lines, repeated) or, with --all-fasta, one or more parallel
FASTA files where group g is assembled from record g of each file.

Groups are packed into capacity-bound batches. Oversized sequences are
dropped from their group, groups unfit for any batch are skipped, and each
completed batch reports the inclusive range of group numbers it disposed of.

Example:
  poabatch run windows.txt
  poabatch run --msa --all-fasta reads_a.fa reads_b.fa
  poabatch run --graph-output graphs.dot --db run.db windows.txt`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.MSA, "msa", false, "emit MSA rows instead of consensus")
	cmd.Flags().BoolVar(&opts.Banded, "banded", false, "use banded alignment")
	cmd.Flags().BoolVarP(&opts.AllFASTA, "all-fasta", "a", false, "treat inputs as parallel FASTA files")
	cmd.Flags().IntVar(&opts.MaxWindows, "max-windows", 0, "cap on loaded groups (0 = no cap)")
	cmd.Flags().StringVar(&opts.GraphOutput, "graph-output", "", "append DOT graphs of processed groups to this file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record per-group dispositions in this SQLite database")
	cmd.Flags().StringVar(&opts.ParamsPath, "params", "", "YAML parameters file")
	cmd.Flags().StringVar(&opts.Format, "format", report.FormatText, "output format (text|json)")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions, args []string) error {
	params, err := loadParams(opts.ParamsPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load parameters", err)
	}

	groups, err := loadGroups(args, opts.AllFASTA, opts.MaxWindows)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load input", err)
	}
	slog.Info("loaded groups", "count", len(groups))
	if len(groups) == 0 {
		return nil
	}

	assignments, err := partition(groups, params, opts.Banded, opts.MSA)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to size batches", err)
	}
	slog.Debug("sized batches", "configurations", len(assignments))

	sink, err := report.NewConsoleSink(cmd.OutOrStdout(), opts.Format)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid output format", err)
	}

	mode := scheduler.ModeConsensus
	if opts.MSA {
		mode = scheduler.ModeMSA
	}

	scoring := align.Scoring{Match: params.Match, Mismatch: params.Mismatch, Gap: params.Gap}
	factory := func(cfg poa.BatchConfig) (scheduler.Batch, error) {
		return batch.New(cfg, scoring)
	}

	schedOpts := []scheduler.Option{scheduler.WithMode(mode)}

	if opts.GraphOutput != "" {
		f, err := os.Create(opts.GraphOutput)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open graph output", err)
		}
		defer f.Close()
		schedOpts = append(schedOpts, scheduler.WithGraphExporter(report.NewDOTExporter(f)))
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open disposition database", err)
		}
		defer st.Close()

		run, err := st.BeginRun(context.Background(), mode)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start run record", err)
		}
		slog.Info("recording dispositions", "run", run.ID(), "db", opts.Database)
		schedOpts = append(schedOpts, scheduler.WithRecorder(run))
	}

	sched := scheduler.New(factory, sink, schedOpts...)
	if err := sched.Run(groups, assignments); err != nil {
		return WrapExitError(ExitFailure, "scheduling run failed", err)
	}
	return nil
}
