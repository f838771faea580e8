package poa

// Status is the closed outcome code for batch operations. Capacity
// violations surface exclusively through these codes, never through errors:
// the scheduler's fill loop branches on them.
type Status int

const (
	// StatusSuccess indicates the operation completed.
	StatusSuccess Status = iota

	// StatusExceededMaxGroups indicates the batch is full at the group
	// level: prior adds consumed its capacity. Not an error in the group
	// itself - the scheduler flushes and retries the group against a
	// fresh batch.
	StatusExceededMaxGroups

	// StatusExceededMaxSeqSize indicates one sequence is longer than the
	// batch config allows. Sequence-level and non-fatal to the group:
	// the sequence is dropped, the group is still accepted.
	StatusExceededMaxSeqSize

	// StatusExceededMaxSeqsPerGroup indicates the group holds more
	// sequences than the batch config allows. The group is unfit for
	// this configuration and is skipped.
	StatusExceededMaxSeqsPerGroup

	// StatusGenericError covers unrecoverable engine errors and contract
	// violations (e.g. adding to a processed batch before reset).
	StatusGenericError
)

var statusNames = map[Status]string{
	StatusSuccess:                 "success",
	StatusExceededMaxGroups:       "exceeded_maximum_groups",
	StatusExceededMaxSeqSize:      "exceeded_maximum_sequence_size",
	StatusExceededMaxSeqsPerGroup: "exceeded_maximum_sequences_per_group",
	StatusGenericError:            "generic_error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown_status"
}
