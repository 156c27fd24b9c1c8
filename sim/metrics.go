package sim

import (
	"fmt"
	"sort"
)

// Metrics aggregates run-wide statistics for final reporting.
type Metrics struct {
	RequestsResolved int
	Fulfilled        int
	Rejected         int

	// AddressesGranted counts addresses handed out across every
	// fulfilled request, replenishment blocks included.
	AddressesGranted uint64

	EndTime int64

	// ExhaustionTimes maps a supplier to the first time a request against
	// it was rejected for exhaustion.
	ExhaustionTimes map[string]int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		ExhaustionTimes: make(map[string]int64),
	}
}

// Observe folds one resolved request into the aggregates.
func (m *Metrics) Observe(req *AllocationRequest, now int64) {
	m.RequestsResolved++
	switch req.Status {
	case StatusFulfilled:
		m.Fulfilled++
		m.AddressesGranted += req.Prefix.Span(req.Requester.Tree.Width())
	case StatusRejected:
		m.Rejected++
		if req.Reason == ReasonExhaustion && req.Requester.Parent != nil {
			supplier := req.Requester.Parent.Name
			if _, seen := m.ExhaustionTimes[supplier]; !seen {
				m.ExhaustionTimes[supplier] = now
			}
		}
	}
}

// Print displays aggregated metrics at the end of the run.
func (m *Metrics) Print(status RunStatus) {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Status               : %s\n", status)
	fmt.Printf("End Time             : %d\n", m.EndTime)
	fmt.Printf("Requests Resolved    : %d\n", m.RequestsResolved)
	fmt.Printf("Fulfilled            : %d\n", m.Fulfilled)
	fmt.Printf("Rejected             : %d\n", m.Rejected)
	fmt.Printf("Addresses Granted    : %d\n", m.AddressesGranted)

	suppliers := make([]string, 0, len(m.ExhaustionTimes))
	for name := range m.ExhaustionTimes {
		suppliers = append(suppliers, name)
	}
	sort.Strings(suppliers)
	for _, name := range suppliers {
		fmt.Printf("Exhausted            : %s at t=%d\n", name, m.ExhaustionTimes[name])
	}
}
