package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelbio/poabatch/internal/poa"
	"github.com/kestrelbio/poabatch/internal/report"
)

// SizesOptions holds flags for the sizes command.
type SizesOptions struct {
	*RootOptions

	MSA        bool
	Banded     bool
	AllFASTA   bool
	MaxWindows int
	ParamsPath string
	Format     string
}

// NewSizesCommand creates the sizes command, which prints the batch
// partition the run command would use without running any alignment.
func NewSizesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SizesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sizes <input>...",
		Short: "Show the batch partition for the given input",
		Long: `Show how the input groups would be partitioned into batch
configurations: per configuration, its capacity bounds and the ordered list
of group ids assigned to it. Useful for checking why a group is skipped or
how many batches a run will take.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSizes(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.MSA, "msa", false, "size for MSA output")
	cmd.Flags().BoolVar(&opts.Banded, "banded", false, "size for banded alignment")
	cmd.Flags().BoolVarP(&opts.AllFASTA, "all-fasta", "a", false, "treat inputs as parallel FASTA files")
	cmd.Flags().IntVar(&opts.MaxWindows, "max-windows", 0, "cap on loaded groups (0 = no cap)")
	cmd.Flags().StringVar(&opts.ParamsPath, "params", "", "YAML parameters file")
	cmd.Flags().StringVar(&opts.Format, "format", report.FormatText, "output format (text|json)")

	return cmd
}

type assignmentView struct {
	Batch     int   `json:"batch"`
	MaxGroups int   `json:"max_groups"`
	MaxSeqLen int   `json:"max_seq_len"`
	BandWidth int   `json:"band_width"`
	GroupIDs  []int `json:"group_ids"`
}

func runSizes(cmd *cobra.Command, opts *SizesOptions, args []string) error {
	if !report.IsValidFormat(opts.Format) {
		return WrapExitError(ExitCommandError, "invalid output format", fmt.Errorf("%q is not one of %v", opts.Format, report.ValidFormats))
	}

	params, err := loadParams(opts.ParamsPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load parameters", err)
	}

	groups, err := loadGroups(args, opts.AllFASTA, opts.MaxWindows)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load input", err)
	}

	assignments, err := partition(groups, params, opts.Banded, opts.MSA)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to size batches", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == report.FormatJSON {
		enc := json.NewEncoder(out)
		for b, asg := range assignments {
			if err := enc.Encode(viewOf(b, asg)); err != nil {
				return WrapExitError(ExitFailure, "failed to encode partition", err)
			}
		}
		return nil
	}

	for b, asg := range assignments {
		v := viewOf(b, asg)
		fmt.Fprintf(out, "batch %d: max_groups=%d max_seq_len=%d band_width=%d groups=%d\n",
			v.Batch, v.MaxGroups, v.MaxSeqLen, v.BandWidth, len(v.GroupIDs))
		fmt.Fprintf(out, "  ids: %v\n", v.GroupIDs)
	}
	return nil
}

func viewOf(b int, asg poa.Assignment) assignmentView {
	return assignmentView{
		Batch:     b,
		MaxGroups: asg.Config.MaxGroups,
		MaxSeqLen: asg.Config.MaxSeqLen,
		BandWidth: asg.Config.BandWidth,
		GroupIDs:  asg.GroupIDs,
	}
}
