// Package poa defines the data model shared by the window loader, the batch
// sizer, the batch engine, and the scheduler: entries, groups, capacity
// configurations, and the closed set of status codes capacity violations are
// reported through.
//
// Everything in this package is pure data. Behavior lives in the packages
// that consume it.
package poa

import "fmt"

// Entry is one input sequence of an alignment problem.
//
// Seq is borrowed from the window storage owned by the loader; an Entry must
// not outlive the window collection it was created from, and consumers must
// not mutate it. Weights is an optional per-base weight vector; nil means
// uniform weight 1.
type Entry struct {
	Seq     []byte
	Weights []int8
}

// Validate checks the Entry invariants: a non-empty sequence, and a weights
// vector that is either absent or exactly as long as the sequence.
func (e Entry) Validate() error {
	if len(e.Seq) == 0 {
		return fmt.Errorf("entry has empty sequence")
	}
	if e.Weights != nil && len(e.Weights) != len(e.Seq) {
		return fmt.Errorf("entry weights length %d does not match sequence length %d", len(e.Weights), len(e.Seq))
	}
	return nil
}

// Group is one alignment problem: an ordered set of entries to be aligned
// jointly. Insertion order is significant - it defines the order sequences
// are threaded into the alignment graph. A group is identified by its
// position in the global group list (its group id); the struct itself does
// not carry the id.
type Group struct {
	Entries []Entry
}

// MaxSeqLen returns the length of the longest sequence in the group.
// Returns 0 for an empty group.
func (g Group) MaxSeqLen() int {
	max := 0
	for _, e := range g.Entries {
		if len(e.Seq) > max {
			max = len(e.Seq)
		}
	}
	return max
}

// BatchConfig bounds what a single batch may hold. Produced by the sizer,
// consumed by the batch constructor. Distinct configs exist because groups
// vary widely in size: a batch sized for short reads can hold many more
// groups than one sized for long ones.
type BatchConfig struct {
	// MaxGroups is the maximum number of groups (POAs) the batch accepts.
	MaxGroups int

	// MaxSeqLen is the maximum length of a single sequence. Longer
	// sequences are dropped at add time with StatusExceededMaxSeqSize.
	MaxSeqLen int

	// MaxSeqsPerGroup is the maximum number of sequences in one group.
	MaxSeqsPerGroup int

	// BandWidth restricts the alignment matrix to a diagonal band when
	// positive. Zero means full alignment.
	BandWidth int
}

// Validate checks that the config describes a usable batch.
func (c BatchConfig) Validate() error {
	if c.MaxGroups < 1 {
		return fmt.Errorf("batch config: MaxGroups must be >= 1, got %d", c.MaxGroups)
	}
	if c.MaxSeqLen < 1 {
		return fmt.Errorf("batch config: MaxSeqLen must be >= 1, got %d", c.MaxSeqLen)
	}
	if c.MaxSeqsPerGroup < 1 {
		return fmt.Errorf("batch config: MaxSeqsPerGroup must be >= 1, got %d", c.MaxSeqsPerGroup)
	}
	if c.BandWidth < 0 {
		return fmt.Errorf("batch config: BandWidth must be >= 0, got %d", c.BandWidth)
	}
	return nil
}

// Assignment pairs a batch configuration with the ordered list of group ids
// the scheduler should attempt to process under it. The sizer guarantees
// every group id appears in exactly one assignment; the scheduler trusts
// that partition and processes ids strictly in list order.
type Assignment struct {
	Config   BatchConfig
	GroupIDs []int
}
