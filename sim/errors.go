package sim

import "fmt"

// AlignmentError reports an insertion whose base is not a multiple of its
// span. Policy is reject-and-continue: the tree is left unchanged and the
// caller decides whether to skip the record or abort.
type AlignmentError struct {
	Prefix Prefix
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("prefix %s is not aligned to its length", e.Prefix)
}

// OverlapError reports an attempted double allocation: the inserted prefix
// intersects a block already marked allocated.
type OverlapError struct {
	Prefix Prefix
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("prefix %s overlaps an existing allocation", e.Prefix)
}

// PastSchedulingError reports an attempt to schedule an event before the
// current simulation clock. This is a programming error and fatal to the run.
type PastSchedulingError struct {
	EventTime int64
	Clock     int64
}

func (e *PastSchedulingError) Error() string {
	return fmt.Sprintf("event scheduled at %d but clock is already %d", e.EventTime, e.Clock)
}
