// Package sizer partitions groups into capacity-bound batch assignments.
//
// Groups vary widely in size, so a single batch configuration either wastes
// capacity on short groups or rejects long ones. The sizer buckets groups by
// the power-of-two ceiling of their longest sequence and emits one
// configuration per non-empty bucket, sized so the estimated memory cost of
// a full batch stays inside the planning budget.
//
// The budget is sampled once per run: it is a point-in-time approximation
// (see the mem_fraction parameter for the headroom that compensates).
//
// The partition is deterministic and exhaustive: assignments are ordered by
// ascending ceiling, ids ascend within an assignment, and every group id
// appears exactly once. The scheduler relies on all three properties.
package sizer

import (
	"fmt"
	"sort"

	"github.com/kestrelbio/poabatch/internal/poa"
)

// minCeiling keeps tiny groups from producing a flood of micro-buckets.
const minCeiling = 1024

// dpCellBytes approximates the per-cell footprint of the alignment matrix.
const dpCellBytes = 12

// Options configures the partition.
type Options struct {
	// Banded selects banded alignment; BandWidth is the band half-width
	// and caps the matrix width in the cost model.
	Banded    bool
	BandWidth int

	// MSA roughly doubles per-group memory (row reconstruction state).
	MSA bool

	// MemoryBudget is the planning budget in bytes for one batch.
	MemoryBudget int64

	// MaxSeqsPerGroup is forwarded into every produced config.
	MaxSeqsPerGroup int
}

// Partition assigns every group to exactly one batch configuration.
func Partition(groups []poa.Group, opts Options) ([]poa.Assignment, error) {
	if opts.MemoryBudget < 1 {
		return nil, fmt.Errorf("sizer: memory budget must be >= 1, got %d", opts.MemoryBudget)
	}
	if opts.MaxSeqsPerGroup < 1 {
		return nil, fmt.Errorf("sizer: max sequences per group must be >= 1, got %d", opts.MaxSeqsPerGroup)
	}
	if opts.Banded && opts.BandWidth < 1 {
		return nil, fmt.Errorf("sizer: band width must be >= 1 when banded, got %d", opts.BandWidth)
	}

	buckets := make(map[int][]int)
	for id, g := range groups {
		c := ceiling(g.MaxSeqLen())
		buckets[c] = append(buckets[c], id)
	}

	ceilings := make([]int, 0, len(buckets))
	for c := range buckets {
		ceilings = append(ceilings, c)
	}
	sort.Ints(ceilings)

	assignments := make([]poa.Assignment, 0, len(ceilings))
	for _, c := range ceilings {
		maxGroups := int(opts.MemoryBudget / groupCost(c, opts))
		if maxGroups < 1 {
			// The budget cannot hold even one group of this size; the
			// scheduler still needs the assignment so it can report
			// every id skipped rather than silently dropping them.
			maxGroups = 1
		}
		assignments = append(assignments, poa.Assignment{
			Config: poa.BatchConfig{
				MaxGroups:       maxGroups,
				MaxSeqLen:       c,
				MaxSeqsPerGroup: opts.MaxSeqsPerGroup,
				BandWidth:       bandFor(c, opts),
			},
			GroupIDs: buckets[c],
		})
	}
	return assignments, nil
}

// ceiling returns the power-of-two bucket ceiling for a longest-sequence
// length, never below minCeiling.
func ceiling(maxLen int) int {
	c := minCeiling
	for c < maxLen {
		c <<= 1
	}
	return c
}

func bandFor(ceil int, opts Options) int {
	if !opts.Banded {
		return 0
	}
	if opts.BandWidth > ceil {
		return ceil
	}
	return opts.BandWidth
}

// groupCost estimates the memory one group of the given ceiling consumes:
// the alignment matrix plus graph bookkeeping, doubled for MSA output.
func groupCost(ceil int, opts Options) int64 {
	width := int64(ceil)
	if opts.Banded && int64(opts.BandWidth)*2 < width {
		width = int64(opts.BandWidth) * 2
	}
	cost := int64(ceil)*width*dpCellBytes + int64(ceil)*128
	if opts.MSA {
		cost *= 2
	}
	return cost
}
