package poa

// ConsensusResult is the consensus output for one processed group.
type ConsensusResult struct {
	Seq string

	// Coverage holds per-base support counts, parallel to Seq.
	Coverage []int
}
