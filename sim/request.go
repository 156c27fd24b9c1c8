package sim

import "fmt"

// RequestStatus is the lifecycle state of an AllocationRequest. Requests are
// resolved synchronously within the instant they are made, so Pending is
// only ever observable from inside that resolution.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusFulfilled RequestStatus = "fulfilled"
	StatusRejected  RequestStatus = "rejected"
)

// RejectReason says why a request was not fulfilled.
type RejectReason string

const (
	// ReasonExhaustion: no free gap of the requested size remains anywhere
	// in the supplier chain. An expected steady-state condition, not an
	// error; behaviours decide whether and when to retry.
	ReasonExhaustion RejectReason = "exhaustion"

	// ReasonInternal: a gap was found but could not be claimed, or the
	// requester has no supplier. Indicates inconsistent state or input
	// data, never normal operation.
	ReasonInternal RejectReason = "internal"
)

// AllocationRequest is one entity's request for a block of address space
// from its supplier. Once resolved it is immutable; the record stream keeps
// a flattened copy of every resolution.
type AllocationRequest struct {
	Requester *Entity
	Span      uint64 // addresses requested; rounded up to a power of two
	Length    int    // prefix length of the block that would satisfy Span
	Time      int64
	Status    RequestStatus
	Prefix    Prefix       // set only when fulfilled
	Reason    RejectReason // set only when rejected
}

func (r *AllocationRequest) String() string {
	return fmt.Sprintf("AllocationRequest: (requester: %s, span: %d, time: %d, status: %s)",
		r.Requester.Name, r.Span, r.Time, r.Status)
}
