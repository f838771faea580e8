package cli

import (
	"fmt"

	"github.com/kestrelbio/poabatch/internal/config"
	"github.com/kestrelbio/poabatch/internal/poa"
	"github.com/kestrelbio/poabatch/internal/sizer"
	"github.com/kestrelbio/poabatch/internal/window"
)

// loadParams returns the parameter set, from file when requested.
func loadParams(path string) (config.Params, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// loadGroups reads the input paths into groups. A windows file must be a
// single input; FASTA mode accepts several parallel files.
func loadGroups(paths []string, allFASTA bool, maxWindows int) ([]poa.Group, error) {
	if allFASTA {
		return window.LoadFASTAWindows(paths, maxWindows)
	}
	if len(paths) != 1 {
		return nil, fmt.Errorf("windows input takes exactly one file, got %d (use --all-fasta for multiple FASTA inputs)", len(paths))
	}
	return window.LoadWindows(paths[0], maxWindows)
}

// partition runs the sizer over the loaded groups.
func partition(groups []poa.Group, params config.Params, banded, msa bool) ([]poa.Assignment, error) {
	return sizer.Partition(groups, sizer.Options{
		Banded:          banded,
		BandWidth:       params.BandWidth,
		MSA:             msa,
		MemoryBudget:    params.Budget(),
		MaxSeqsPerGroup: params.MaxSeqsPerGroup,
	})
}
