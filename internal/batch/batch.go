// Package batch implements the capacity-bound accumulator the scheduler
// fills and flushes.
//
// A Batch moves through an explicit state machine:
//
//	Empty --AddGroup--> Filling --Process--> Processed --Reset--> Empty
//
// AddGroup is valid in Empty and Filling, Process only in Filling (never on
// an empty batch), result extraction only in Processed, Reset from any
// state. Violations surface as ErrInvalidState or StatusGenericError rather
// than panics, so a misbehaving caller cannot corrupt results.
//
// Capacity violations are reported exclusively through poa.Status codes:
// the scheduler's fill loop branches on them and must never see a capacity
// problem as an error.
package batch

import (
	"errors"
	"fmt"

	"github.com/kestrelbio/poabatch/internal/align"
	"github.com/kestrelbio/poabatch/internal/poa"
)

// State is the batch lifecycle state.
type State int

const (
	// StateEmpty means no groups are staged; the batch accepts adds.
	StateEmpty State = iota
	// StateFilling means at least one group is staged; adds and Process
	// are valid.
	StateFilling
	// StateProcessed means alignment has run; only result extraction and
	// Reset are valid.
	StateProcessed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFilling:
		return "filling"
	case StateProcessed:
		return "processed"
	default:
		return "unknown"
	}
}

// ErrInvalidState is returned when an operation is called outside the state
// it is valid in.
var ErrInvalidState = errors.New("batch: operation invalid in current state")

type stagedGroup struct {
	entries []poa.Entry // surviving entries only; oversized ones were dropped at add time
}

// Batch accumulates groups up to its configured capacity and runs partial
// order alignment for everything held. One scheduler owns a Batch for its
// entire fill/flush/reset cycle; Batch itself is not safe for concurrent
// use.
type Batch struct {
	cfg     poa.BatchConfig
	scoring align.Scoring

	state  State
	groups []stagedGroup

	// Populated by Process, cleared by Reset.
	graphs    []*align.Graph
	outStatus []poa.Status
}

// New creates an empty batch with the given capacity configuration.
func New(cfg poa.BatchConfig, scoring align.Scoring) (*Batch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Batch{cfg: cfg, scoring: scoring}, nil
}

// Config returns the capacity configuration the batch was created with.
// Reset preserves it.
func (b *Batch) Config() poa.BatchConfig { return b.cfg }

// State returns the current lifecycle state.
func (b *Batch) State() State { return b.state }

// TotalGroups returns the number of groups currently staged.
func (b *Batch) TotalGroups() int { return len(b.groups) }

// AddGroup attempts to stage a group. The returned group-level status is one
// of:
//
//   - StatusSuccess: the group was staged; the per-sequence slice flags any
//     sequence dropped for exceeding the maximum length.
//   - StatusExceededMaxGroups: the batch is full; nothing was staged and
//     the same group may be retried after a flush and Reset.
//   - StatusExceededMaxSeqsPerGroup, StatusGenericError: the group is
//     unfit for this configuration and was not staged.
//
// The per-sequence slice is non-nil only when sequences were evaluated.
func (b *Batch) AddGroup(g poa.Group) (poa.Status, []poa.Status) {
	if b.state == StateProcessed {
		return poa.StatusGenericError, nil
	}
	if len(b.groups) >= b.cfg.MaxGroups {
		return poa.StatusExceededMaxGroups, nil
	}
	if len(g.Entries) == 0 {
		return poa.StatusGenericError, nil
	}
	if len(g.Entries) > b.cfg.MaxSeqsPerGroup {
		return poa.StatusExceededMaxSeqsPerGroup, nil
	}

	seqStatus := make([]poa.Status, len(g.Entries))
	surviving := make([]poa.Entry, 0, len(g.Entries))
	for i, e := range g.Entries {
		switch {
		case e.Validate() != nil:
			seqStatus[i] = poa.StatusGenericError
		case len(e.Seq) > b.cfg.MaxSeqLen:
			seqStatus[i] = poa.StatusExceededMaxSeqSize
		default:
			seqStatus[i] = poa.StatusSuccess
			surviving = append(surviving, e)
		}
	}

	if len(surviving) == 0 {
		// Every sequence was dropped: the group cannot produce an
		// alignment under this configuration.
		return poa.StatusGenericError, seqStatus
	}

	b.groups = append(b.groups, stagedGroup{entries: surviving})
	b.state = StateFilling
	return poa.StatusSuccess, seqStatus
}

// Process runs partial-order alignment for every staged group. Per-group
// engine failures are recorded in the per-group output statuses and do not
// fail the call; only contract violations (empty batch, wrong state) return
// an error.
func (b *Batch) Process() error {
	if b.state != StateFilling {
		return fmt.Errorf("%w: process in state %s", ErrInvalidState, b.state)
	}

	b.graphs = make([]*align.Graph, len(b.groups))
	b.outStatus = make([]poa.Status, len(b.groups))
	for i, sg := range b.groups {
		graph := align.NewGraph(b.scoring, b.cfg.BandWidth)
		status := poa.StatusSuccess
		for _, e := range sg.entries {
			if err := graph.AddSequence(e.Seq, e.Weights); err != nil {
				status = poa.StatusGenericError
				break
			}
		}
		if status == poa.StatusSuccess {
			b.graphs[i] = graph
		}
		b.outStatus[i] = status
	}

	b.state = StateProcessed
	return nil
}

// Consensus returns the consensus result and output status per staged
// group, in staging order. Groups whose status is not StatusSuccess carry a
// zero poa.ConsensusResult.
func (b *Batch) Consensus() ([]poa.ConsensusResult, []poa.Status, error) {
	if b.state != StateProcessed {
		return nil, nil, fmt.Errorf("%w: consensus in state %s", ErrInvalidState, b.state)
	}
	results := make([]poa.ConsensusResult, len(b.groups))
	for i, g := range b.graphs {
		if g == nil {
			continue
		}
		seq, cov := g.Consensus()
		results[i] = poa.ConsensusResult{Seq: string(seq), Coverage: cov}
	}
	return results, append([]poa.Status(nil), b.outStatus...), nil
}

// MSA returns one alignment row per retained sequence for every staged
// group, in staging order.
func (b *Batch) MSA() ([][]string, []poa.Status, error) {
	if b.state != StateProcessed {
		return nil, nil, fmt.Errorf("%w: msa in state %s", ErrInvalidState, b.state)
	}
	results := make([][]string, len(b.groups))
	for i, g := range b.graphs {
		if g == nil {
			continue
		}
		results[i] = g.MSA()
	}
	return results, append([]poa.Status(nil), b.outStatus...), nil
}

// Graphs returns the alignment graph per staged group for export. Entries
// are nil for groups whose processing failed.
func (b *Batch) Graphs() ([]*align.Graph, []poa.Status, error) {
	if b.state != StateProcessed {
		return nil, nil, fmt.Errorf("%w: graphs in state %s", ErrInvalidState, b.state)
	}
	return append([]*align.Graph(nil), b.graphs...), append([]poa.Status(nil), b.outStatus...), nil
}

// Reset returns the batch to Empty with its capacity configuration
// preserved, releasing all staged groups and results.
func (b *Batch) Reset() {
	b.groups = nil
	b.graphs = nil
	b.outStatus = nil
	b.state = StateEmpty
}
