package scheduler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelbio/poabatch/internal/align"
	"github.com/kestrelbio/poabatch/internal/poa"
)

// fakeBatch honors the capacity contract without running any alignment.
// Consensus results echo the first surviving sequence of each held group so
// tests can correlate outputs with inputs.
type fakeBatch struct {
	capacity int
	maxSeq   int

	held        [][]poa.Entry
	processed   bool
	processCnt  *int // shared counter across fresh batches, may be nil
	failProcess bool
	outFail     map[string]bool // first-sequence content -> per-group output failure
}

func (f *fakeBatch) AddGroup(g poa.Group) (poa.Status, []poa.Status) {
	if f.processed {
		return poa.StatusGenericError, nil
	}
	if len(f.held) >= f.capacity {
		return poa.StatusExceededMaxGroups, nil
	}
	if len(g.Entries) == 0 {
		return poa.StatusGenericError, nil
	}

	seqStatus := make([]poa.Status, len(g.Entries))
	var surviving []poa.Entry
	for i, e := range g.Entries {
		if f.maxSeq > 0 && len(e.Seq) > f.maxSeq {
			seqStatus[i] = poa.StatusExceededMaxSeqSize
			continue
		}
		seqStatus[i] = poa.StatusSuccess
		surviving = append(surviving, e)
	}
	if len(surviving) == 0 {
		return poa.StatusGenericError, seqStatus
	}
	f.held = append(f.held, surviving)
	return poa.StatusSuccess, seqStatus
}

func (f *fakeBatch) TotalGroups() int { return len(f.held) }

func (f *fakeBatch) Process() error {
	if f.failProcess {
		return errors.New("engine exploded")
	}
	f.processed = true
	if f.processCnt != nil {
		*f.processCnt++
	}
	return nil
}

func (f *fakeBatch) Consensus() ([]poa.ConsensusResult, []poa.Status, error) {
	results := make([]poa.ConsensusResult, len(f.held))
	status := make([]poa.Status, len(f.held))
	for i, entries := range f.held {
		key := string(entries[0].Seq)
		if f.outFail[key] {
			status[i] = poa.StatusGenericError
			continue
		}
		results[i] = poa.ConsensusResult{Seq: key}
	}
	return results, status, nil
}

func (f *fakeBatch) MSA() ([][]string, []poa.Status, error) {
	results := make([][]string, len(f.held))
	status := make([]poa.Status, len(f.held))
	for i, entries := range f.held {
		for _, e := range entries {
			results[i] = append(results[i], string(e.Seq))
		}
	}
	return results, status, nil
}

func (f *fakeBatch) Graphs() ([]*align.Graph, []poa.Status, error) {
	return make([]*align.Graph, len(f.held)), make([]poa.Status, len(f.held)), nil
}

func (f *fakeBatch) Reset() {
	f.held = nil
	f.processed = false
}

// collector records everything the scheduler reports.
type collector struct {
	consensus []string // "gid:seq"
	msa       []string // "gid:rows..."
	progress  []string // "first-last@batch"
}

func (c *collector) Consensus(groupID int, res poa.ConsensusResult) error {
	c.consensus = append(c.consensus, fmt.Sprintf("%d:%s", groupID, res.Seq))
	return nil
}

func (c *collector) MSA(groupID int, rows []string) error {
	c.msa = append(c.msa, fmt.Sprintf("%d:%v", groupID, rows))
	return nil
}

func (c *collector) Progress(first, last, batchNum int) error {
	c.progress = append(c.progress, fmt.Sprintf("%d-%d@%d", first, last, batchNum))
	return nil
}

// memRecorder collects dispositions in memory.
type memRecorder struct {
	dispositions []Disposition
}

func (m *memRecorder) Record(d Disposition) error {
	m.dispositions = append(m.dispositions, d)
	return nil
}

func (m *memRecorder) byGroup() map[int][]Disposition {
	out := make(map[int][]Disposition)
	for _, d := range m.dispositions {
		out[d.GroupID] = append(out[d.GroupID], d)
	}
	return out
}

func singleSeqGroups(seqs ...string) []poa.Group {
	groups := make([]poa.Group, len(seqs))
	for i, s := range seqs {
		groups[i] = poa.Group{Entries: []poa.Entry{{Seq: []byte(s)}}}
	}
	return groups
}

func allIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func newFixture(capacity, maxSeq int, opts ...Option) (*Scheduler, *collector, *memRecorder, *int) {
	sink := &collector{}
	rec := &memRecorder{}
	processCnt := new(int)
	factory := func(cfg poa.BatchConfig) (Batch, error) {
		return &fakeBatch{capacity: capacity, maxSeq: maxSeq, processCnt: processCnt}, nil
	}
	opts = append([]Option{WithRecorder(rec)}, opts...)
	return New(factory, sink, opts...), sink, rec, processCnt
}

func TestRun_CapacityOverflowSplitsBatches(t *testing.T) {
	// Three groups, capacity two: the third add overflows, forcing a
	// flush of the first two, then a fresh fill cycle for the last one.
	groups := singleSeqGroups("AAA", "BBB", "CCC")
	sched, sink, rec, processCnt := newFixture(2, 0)

	err := sched.Run(groups, []poa.Assignment{{GroupIDs: allIDs(3)}})
	require.NoError(t, err)

	assert.Equal(t, []string{"0-1@0", "2-2@0"}, sink.progress)
	assert.Equal(t, []string{"0:AAA", "1:BBB", "2:CCC"}, sink.consensus)
	assert.Equal(t, 2, *processCnt)

	byGroup := rec.byGroup()
	for gid := 0; gid < 3; gid++ {
		require.Len(t, byGroup[gid], 1, "group %d must have exactly one disposition", gid)
		assert.Equal(t, OutcomeProcessed, byGroup[gid][0].Outcome)
		assert.Equal(t, 0, byGroup[gid][0].Batch)
	}
}

func TestRun_UnfitGroupSkippedWithoutProcessing(t *testing.T) {
	// A group whose only sequence exceeds even a fresh batch's limit is
	// skipped; the engine is never invoked for it.
	groups := singleSeqGroups("AAAAAAAAAA")
	sched, sink, rec, processCnt := newFixture(4, 5)

	err := sched.Run(groups, []poa.Assignment{{GroupIDs: allIDs(1)}})
	require.NoError(t, err)

	assert.Empty(t, sink.progress)
	assert.Empty(t, sink.consensus)
	assert.Equal(t, 0, *processCnt)

	require.Len(t, rec.dispositions, 1)
	assert.Equal(t, OutcomeSkipped, rec.dispositions[0].Outcome)
	assert.Equal(t, 0, rec.dispositions[0].GroupID)
}

func TestRun_OversizedSequenceDroppedGroupStillProcessed(t *testing.T) {
	// One oversized sequence in an otherwise valid group: the group is
	// processed, only the long sequence is dropped.
	groups := []poa.Group{{Entries: []poa.Entry{
		{Seq: []byte("AAA")},
		{Seq: []byte("BBBBBBBBBB")},
	}}}
	sched, sink, rec, _ := newFixture(4, 5)

	err := sched.Run(groups, []poa.Assignment{{GroupIDs: allIDs(1)}})
	require.NoError(t, err)

	assert.Equal(t, []string{"0-0@0"}, sink.progress)
	assert.Equal(t, []string{"0:AAA"}, sink.consensus)

	require.Len(t, rec.dispositions, 1)
	assert.Equal(t, OutcomeProcessed, rec.dispositions[0].Outcome)
}

func TestRun_SkippedGroupMidList(t *testing.T) {
	groups := singleSeqGroups("AAA", "BBBBBBBBBB", "CCC")
	sched, sink, rec, _ := newFixture(4, 5)

	err := sched.Run(groups, []poa.Assignment{{GroupIDs: allIDs(3)}})
	require.NoError(t, err)

	// The skip has its own diagnostic and disposition; the final flush
	// range is positional and still ends at the last index.
	assert.Equal(t, []string{"0-2@0"}, sink.progress)
	assert.Equal(t, []string{"0:AAA", "2:CCC"}, sink.consensus)

	byGroup := rec.byGroup()
	assert.Equal(t, OutcomeProcessed, byGroup[0][0].Outcome)
	assert.Equal(t, OutcomeSkipped, byGroup[1][0].Outcome)
	assert.Equal(t, OutcomeProcessed, byGroup[2][0].Outcome)
}

func TestRun_OffsetAccumulatesAcrossAssignments(t *testing.T) {
	groups := singleSeqGroups("AAA", "BBB", "CCC", "DDD")
	sched, sink, _, _ := newFixture(4, 0)

	err := sched.Run(groups, []poa.Assignment{
		{GroupIDs: []int{0, 1}},
		{GroupIDs: []int{2, 3}},
	})
	require.NoError(t, err)

	// The second assignment's range starts where the first left off, so
	// reported numbers stay meaningful against the global list.
	assert.Equal(t, []string{"0-1@0", "2-3@1"}, sink.progress)
}

func TestRun_PerGroupOutputFailureIsolated(t *testing.T) {
	groups := singleSeqGroups("AAA", "BBB", "CCC")
	sink := &collector{}
	rec := &memRecorder{}
	factory := func(cfg poa.BatchConfig) (Batch, error) {
		return &fakeBatch{capacity: 4, outFail: map[string]bool{"BBB": true}}, nil
	}
	sched := New(factory, sink, WithRecorder(rec))

	err := sched.Run(groups, []poa.Assignment{{GroupIDs: allIDs(3)}})
	require.NoError(t, err)

	// Group 1's output is omitted; its neighbors are unaffected.
	assert.Equal(t, []string{"0:AAA", "2:CCC"}, sink.consensus)
	assert.Equal(t, []string{"0-2@0"}, sink.progress)

	byGroup := rec.byGroup()
	assert.Equal(t, OutcomeProcessed, byGroup[0][0].Outcome)
	assert.Equal(t, OutcomeOutputFailed, byGroup[1][0].Outcome)
	assert.Equal(t, OutcomeProcessed, byGroup[2][0].Outcome)
}

func TestRun_FatalProcessErrorPropagates(t *testing.T) {
	groups := singleSeqGroups("AAA")
	factory := func(cfg poa.BatchConfig) (Batch, error) {
		return &fakeBatch{capacity: 4, failProcess: true}, nil
	}
	sched := New(factory, &collector{})

	err := sched.Run(groups, []poa.Assignment{{GroupIDs: allIDs(1)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine exploded")
}

func TestRun_MSAMode(t *testing.T) {
	groups := []poa.Group{{Entries: []poa.Entry{
		{Seq: []byte("AAA")},
		{Seq: []byte("AAB")},
	}}}
	sched, sink, _, _ := newFixture(4, 0, WithMode(ModeMSA))

	err := sched.Run(groups, []poa.Assignment{{GroupIDs: allIDs(1)}})
	require.NoError(t, err)

	assert.Equal(t, []string{"0:[AAA AAB]"}, sink.msa)
	assert.Empty(t, sink.consensus)
}

func TestRun_CapacityOneRetriesEveryGroup(t *testing.T) {
	// Capacity one forces an overflow before every group after the
	// first; each must still be processed in its own flush.
	groups := singleSeqGroups("AAA", "BBB", "CCC")
	sched, sink, rec, processCnt := newFixture(1, 0)

	err := sched.Run(groups, []poa.Assignment{{GroupIDs: allIDs(3)}})
	require.NoError(t, err)

	assert.Equal(t, []string{"0-0@0", "1-1@0", "2-2@0"}, sink.progress)
	assert.Equal(t, 3, *processCnt)
	assert.Len(t, rec.dispositions, 3)
}

func TestRun_FullOnEmptyBatchSkipsInsteadOfLooping(t *testing.T) {
	// A batch that reports itself full while holding nothing contradicts
	// the sizer's bound. The scheduler must not retry forever: every
	// group is skipped and the loop terminates.
	groups := singleSeqGroups("AAA", "BBB")
	sink := &collector{}
	rec := &memRecorder{}
	factory := func(cfg poa.BatchConfig) (Batch, error) {
		return &fakeBatch{capacity: 0}, nil
	}
	sched := New(factory, sink, WithRecorder(rec))

	err := sched.Run(groups, []poa.Assignment{{GroupIDs: allIDs(2)}})
	require.NoError(t, err)

	assert.Empty(t, sink.progress)
	require.Len(t, rec.dispositions, 2)
	for _, d := range rec.dispositions {
		assert.Equal(t, OutcomeSkipped, d.Outcome)
	}
}

func TestRun_UnknownGroupIDRejected(t *testing.T) {
	sched, _, _, _ := newFixture(2, 0)
	err := sched.Run(singleSeqGroups("AAA"), []poa.Assignment{{GroupIDs: []int{5}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown group id")
}

func TestRun_EmptyAssignmentListNoOp(t *testing.T) {
	sched, sink, rec, processCnt := newFixture(2, 0)
	err := sched.Run(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, sink.progress)
	assert.Empty(t, rec.dispositions)
	assert.Equal(t, 0, *processCnt)
}
