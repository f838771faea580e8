// Package scheduler drives capacity-bound batches through their fill,
// process, export, reset cycle.
//
// This is the core of the program: given the sizer's partition of group ids
// into batch assignments, it guarantees that every group ends in exactly one
// terminal disposition (processed in some batch, or skipped), that the loop
// terminates for any input, and that groups are attempted strictly in list
// order so output is reproducible.
//
// Capacity problems are not errors. The batch reports them through
// poa.Status codes and the loop branches on them:
//
//   - a full batch triggers a flush and a retry of the same group against
//     the freshly reset batch;
//   - an oversized sequence is dropped while its group is still processed;
//   - a group unfit for even an empty batch is skipped, once, with a
//     diagnostic.
//
// Only engine failures during processing are fatal and propagate.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/kestrelbio/poabatch/internal/align"
	"github.com/kestrelbio/poabatch/internal/poa"
)

// Mode selects the per-group output the scheduler extracts after processing.
type Mode int

const (
	// ModeConsensus emits one consensus sequence per group.
	ModeConsensus Mode = iota
	// ModeMSA emits one alignment row per retained sequence per group.
	ModeMSA
)

// Batch is the engine contract the scheduler drives. batch.Batch implements
// it; tests substitute scripted fakes.
//
// The scheduler never calls Process on an empty batch and always calls
// Reset before reusing a flushed batch.
type Batch interface {
	AddGroup(g poa.Group) (poa.Status, []poa.Status)
	TotalGroups() int
	Process() error
	Consensus() ([]poa.ConsensusResult, []poa.Status, error)
	MSA() ([][]string, []poa.Status, error)
	Graphs() ([]*align.Graph, []poa.Status, error)
	Reset()
}

// BatchFactory creates a fresh batch for one assignment's configuration.
type BatchFactory func(cfg poa.BatchConfig) (Batch, error)

// Sink consumes per-group results and per-flush progress reports.
type Sink interface {
	// Consensus delivers the consensus for one successfully processed
	// group.
	Consensus(groupID int, res poa.ConsensusResult) error

	// MSA delivers the alignment rows for one successfully processed
	// group.
	MSA(groupID int, rows []string) error

	// Progress reports one completed flush: the inclusive range of
	// global group numbers disposed of, and the batch number. The range
	// is positional - ids inside it that were skipped have their own
	// skip diagnostics and dispositions.
	Progress(first, last, batchNum int) error
}

// GraphExporter receives the alignment graph of each successfully processed
// group. Optional; export never affects scheduling decisions.
type GraphExporter interface {
	ExportGraph(groupID int, g *align.Graph) error
}

// Outcome is the terminal disposition of one group.
type Outcome int

const (
	// OutcomeProcessed means the group was aligned and its output
	// delivered.
	OutcomeProcessed Outcome = iota
	// OutcomeOutputFailed means the group was in a processed batch but
	// the engine could not produce its output; other groups in the same
	// batch are unaffected.
	OutcomeOutputFailed
	// OutcomeSkipped means the group was never added to any batch.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeOutputFailed:
		return "output_failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Disposition records where one group ended up. Exactly one is emitted per
// input group id.
type Disposition struct {
	GroupID int
	Batch   int
	Outcome Outcome
	Reason  string
}

// Recorder persists dispositions. Optional; recording failures are treated
// as fatal because a partial disposition log is worse than none.
type Recorder interface {
	Record(d Disposition) error
}

// Scheduler owns one scheduling run. Construct with New; zero value is not
// usable.
type Scheduler struct {
	factory  BatchFactory
	sink     Sink
	mode     Mode
	exporter GraphExporter // nil = no export
	recorder Recorder      // nil = no recording
	log      *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMode selects consensus or MSA output. Default is consensus.
func WithMode(m Mode) Option {
	return func(s *Scheduler) { s.mode = m }
}

// WithGraphExporter enables per-group graph export after each flush.
func WithGraphExporter(e GraphExporter) Option {
	return func(s *Scheduler) { s.exporter = e }
}

// WithRecorder enables disposition recording.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New creates a scheduler.
func New(factory BatchFactory, sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		factory: factory,
		sink:    sink,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every assignment in order. A running offset keeps reported
// group numbers global across assignments. Dispositions are delivered to
// the recorder as they become terminal; a non-nil error means the engine
// failed fatally and the run is incomplete.
func (s *Scheduler) Run(groups []poa.Group, assignments []poa.Assignment) error {
	for b, asg := range assignments {
		for _, gid := range asg.GroupIDs {
			if gid < 0 || gid >= len(groups) {
				return fmt.Errorf("assignment %d references unknown group id %d", b, gid)
			}
		}
	}

	offset := 0
	for b, asg := range assignments {
		if err := s.runAssignment(b, asg, groups, offset); err != nil {
			return fmt.Errorf("batch %d: %w", b, err)
		}
		offset += len(asg.GroupIDs)
	}
	return nil
}

// runAssignment is the fill/flush loop. The index i is never decremented
// and every iteration either advances it or flushes a non-empty batch whose
// next iteration will; that is the termination argument.
func (s *Scheduler) runAssignment(b int, asg poa.Assignment, groups []poa.Group, offset int) error {
	bt, err := s.factory(asg.Config)
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}

	n := len(asg.GroupIDs)
	first := 0      // position of the first group of the current fill cycle
	held := []int{} // group ids staged in the current fill cycle
	for i := 0; i < n; {
		gid := asg.GroupIDs[i]
		status, seqStatus := bt.AddGroup(groups[gid])

		if status == poa.StatusSuccess {
			held = append(held, gid)
			s.reportDrops(gid, seqStatus)
		}

		// Flush on overflow, or at the end of the list to drain
		// whatever accumulated.
		if status == poa.StatusExceededMaxGroups || i == n-1 {
			switch {
			case bt.TotalGroups() > 0:
				// On overflow the current group was excluded from
				// this flush, so the reported range ends one short;
				// the group is retried against the reset batch.
				end := i
				if status != poa.StatusSuccess {
					end = i - 1
				}
				if err := s.flush(bt, b, held, first+offset, end+offset); err != nil {
					return err
				}
				held = held[:0]
				first = i
				if status == poa.StatusSuccess {
					first = i + 1
				}
			case status == poa.StatusExceededMaxGroups:
				// Full on an empty batch contradicts the sizer's
				// bound; skip rather than loop forever.
				if err := s.skip(gid, b, status); err != nil {
					return err
				}
				i++
				first = i
			}
		}

		switch {
		case status == poa.StatusSuccess:
			i++
		case status != poa.StatusExceededMaxGroups:
			if err := s.skip(gid, b, status); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

// flush processes the held groups, delivers their outputs, exports graphs,
// reports the progress range, and resets the batch for reuse.
func (s *Scheduler) flush(bt Batch, b int, held []int, first, last int) error {
	if err := bt.Process(); err != nil {
		return fmt.Errorf("process: %w", err)
	}

	var outStatus []poa.Status
	switch s.mode {
	case ModeMSA:
		rows, status, err := bt.MSA()
		if err != nil {
			return fmt.Errorf("get msa: %w", err)
		}
		outStatus = status
		for k, gid := range held {
			if status[k] != poa.StatusSuccess {
				continue
			}
			if err := s.sink.MSA(gid, rows[k]); err != nil {
				return fmt.Errorf("emit msa for group %d: %w", gid, err)
			}
		}
	default:
		results, status, err := bt.Consensus()
		if err != nil {
			return fmt.Errorf("get consensus: %w", err)
		}
		outStatus = status
		for k, gid := range held {
			if status[k] != poa.StatusSuccess {
				continue
			}
			if err := s.sink.Consensus(gid, results[k]); err != nil {
				return fmt.Errorf("emit consensus for group %d: %w", gid, err)
			}
		}
	}

	if s.exporter != nil {
		if err := s.exportGraphs(bt, held, outStatus); err != nil {
			return err
		}
	}

	for k, gid := range held {
		d := Disposition{GroupID: gid, Batch: b, Outcome: OutcomeProcessed}
		if outStatus[k] != poa.StatusSuccess {
			d.Outcome = OutcomeOutputFailed
			d.Reason = outStatus[k].String()
			s.log.Warn("output generation failed for group",
				"group", gid, "batch", b, "status", outStatus[k].String())
		}
		if err := s.record(d); err != nil {
			return err
		}
	}

	if err := s.sink.Progress(first, last, b); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}

	bt.Reset()
	return nil
}

// exportGraphs hands each successfully processed group's graph to the
// exporter.
func (s *Scheduler) exportGraphs(bt Batch, held []int, outStatus []poa.Status) error {
	graphs, status, err := bt.Graphs()
	if err != nil {
		return fmt.Errorf("get graphs: %w", err)
	}
	for k, gid := range held {
		if status[k] != poa.StatusSuccess || outStatus[k] != poa.StatusSuccess || graphs[k] == nil {
			continue
		}
		if err := s.exporter.ExportGraph(gid, graphs[k]); err != nil {
			return fmt.Errorf("export graph for group %d: %w", gid, err)
		}
	}
	return nil
}

func (s *Scheduler) skip(gid, b int, status poa.Status) error {
	s.log.Warn("could not add group to batch",
		"group", gid, "batch", b, "status", status.String())
	return s.record(Disposition{
		GroupID: gid,
		Batch:   b,
		Outcome: OutcomeSkipped,
		Reason:  status.String(),
	})
}

func (s *Scheduler) reportDrops(gid int, seqStatus []poa.Status) {
	for idx, st := range seqStatus {
		switch st {
		case poa.StatusSuccess:
		case poa.StatusExceededMaxSeqSize:
			s.log.Warn("dropping sequence: exceeded maximum sequence size",
				"group", gid, "sequence", idx)
		default:
			s.log.Warn("dropping sequence",
				"group", gid, "sequence", idx, "status", st.String())
		}
	}
}

func (s *Scheduler) record(d Disposition) error {
	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.Record(d); err != nil {
		return fmt.Errorf("record disposition for group %d: %w", d.GroupID, err)
	}
	return nil
}
