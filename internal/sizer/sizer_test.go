package sizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelbio/poabatch/internal/poa"
)

func groupOfLen(n int) poa.Group {
	return poa.Group{Entries: []poa.Entry{{Seq: []byte(strings.Repeat("A", n))}}}
}

func defaultOpts() Options {
	return Options{MemoryBudget: 1 << 30, MaxSeqsPerGroup: 100}
}

func TestPartition_CoversEveryGroupExactlyOnce(t *testing.T) {
	groups := []poa.Group{
		groupOfLen(100), groupOfLen(5000), groupOfLen(200),
		groupOfLen(900), groupOfLen(3000), groupOfLen(40),
	}

	assignments, err := Partition(groups, defaultOpts())
	require.NoError(t, err)

	seen := make(map[int]int)
	for _, asg := range assignments {
		for _, id := range asg.GroupIDs {
			seen[id]++
		}
	}
	for id := range groups {
		assert.Equal(t, 1, seen[id], "group %d", id)
	}
}

func TestPartition_Deterministic(t *testing.T) {
	groups := []poa.Group{groupOfLen(100), groupOfLen(5000), groupOfLen(200)}

	a, err := Partition(groups, defaultOpts())
	require.NoError(t, err)
	b, err := Partition(groups, defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPartition_BucketsByCeiling(t *testing.T) {
	groups := []poa.Group{
		groupOfLen(100),  // ceiling 1024
		groupOfLen(1500), // ceiling 2048
		groupOfLen(800),  // ceiling 1024
	}

	assignments, err := Partition(groups, defaultOpts())
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	assert.Equal(t, 1024, assignments[0].Config.MaxSeqLen)
	assert.Equal(t, []int{0, 2}, assignments[0].GroupIDs)
	assert.Equal(t, 2048, assignments[1].Config.MaxSeqLen)
	assert.Equal(t, []int{1}, assignments[1].GroupIDs)
}

func TestPartition_ConfigsSatisfyGroups(t *testing.T) {
	groups := []poa.Group{groupOfLen(100), groupOfLen(5000), groupOfLen(200000)}

	assignments, err := Partition(groups, defaultOpts())
	require.NoError(t, err)

	for _, asg := range assignments {
		require.NoError(t, asg.Config.Validate())
		for _, id := range asg.GroupIDs {
			assert.LessOrEqual(t, groups[id].MaxSeqLen(), asg.Config.MaxSeqLen,
				"group %d must fit its config's sequence bound", id)
		}
	}
}

func TestPartition_TinyBudgetStillYieldsCapacityOne(t *testing.T) {
	groups := []poa.Group{groupOfLen(100000)}

	assignments, err := Partition(groups, Options{MemoryBudget: 1, MaxSeqsPerGroup: 10})
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, 1, assignments[0].Config.MaxGroups,
		"capacity never drops below one so skips are reported, not silent")
}

func TestPartition_BandedCapsBandAtCeiling(t *testing.T) {
	groups := []poa.Group{groupOfLen(100)}

	assignments, err := Partition(groups, Options{
		Banded: true, BandWidth: 4096,
		MemoryBudget: 1 << 30, MaxSeqsPerGroup: 10,
	})
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, assignments[0].Config.MaxSeqLen, assignments[0].Config.BandWidth)
}

func TestPartition_BandedHoldsMoreGroups(t *testing.T) {
	groups := []poa.Group{groupOfLen(60000)}

	full, err := Partition(groups, Options{MemoryBudget: 1 << 32, MaxSeqsPerGroup: 10})
	require.NoError(t, err)
	banded, err := Partition(groups, Options{
		Banded: true, BandWidth: 256,
		MemoryBudget: 1 << 32, MaxSeqsPerGroup: 10,
	})
	require.NoError(t, err)

	assert.Greater(t, banded[0].Config.MaxGroups, full[0].Config.MaxGroups,
		"banded matrices are narrower, so more groups fit the same budget")
}

func TestPartition_MSAHalvesCapacity(t *testing.T) {
	groups := []poa.Group{groupOfLen(2000)}

	plain, err := Partition(groups, defaultOpts())
	require.NoError(t, err)

	opts := defaultOpts()
	opts.MSA = true
	msa, err := Partition(groups, opts)
	require.NoError(t, err)

	assert.Greater(t, plain[0].Config.MaxGroups, msa[0].Config.MaxGroups)
}

func TestPartition_OptionValidation(t *testing.T) {
	groups := []poa.Group{groupOfLen(10)}

	_, err := Partition(groups, Options{MemoryBudget: 0, MaxSeqsPerGroup: 1})
	require.Error(t, err)

	_, err = Partition(groups, Options{MemoryBudget: 1, MaxSeqsPerGroup: 0})
	require.Error(t, err)

	_, err = Partition(groups, Options{Banded: true, MemoryBudget: 1, MaxSeqsPerGroup: 1})
	require.Error(t, err)
}

func TestPartition_EmptyInput(t *testing.T) {
	assignments, err := Partition(nil, defaultOpts())
	require.NoError(t, err)
	assert.Empty(t, assignments)
}
