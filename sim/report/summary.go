package report

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates one run's record stream.
type Summary struct {
	Total     int
	Fulfilled int
	Rejected  int

	// Span statistics over fulfilled requests only.
	MeanSpan   float64
	MedianSpan float64
	P95Span    float64

	// FirstRejection is the earliest rejection time, -1 when every
	// request was fulfilled.
	FirstRejection int64

	// ByEntity counts resolved requests per requesting entity.
	ByEntity map[string]int
}

// Summarize folds a record stream into a Summary.
func Summarize(r *RunReport) *Summary {
	s := &Summary{FirstRejection: -1, ByEntity: make(map[string]int)}
	if r == nil {
		return s
	}

	var spans []float64
	for _, rec := range r.Records {
		s.Total++
		s.ByEntity[rec.Entity]++
		switch rec.Outcome {
		case OutcomeFulfilled:
			s.Fulfilled++
			spans = append(spans, float64(rec.Span))
		case OutcomeRejected:
			s.Rejected++
			if s.FirstRejection < 0 || rec.Time < s.FirstRejection {
				s.FirstRejection = rec.Time
			}
		}
	}

	if len(spans) > 0 {
		sort.Float64s(spans)
		s.MeanSpan = stat.Mean(spans, nil)
		s.MedianSpan = stat.Quantile(0.5, stat.Empirical, spans, nil)
		s.P95Span = stat.Quantile(0.95, stat.Empirical, spans, nil)
	}
	return s
}

// Write renders the summary in the flat key-value style of the run metrics.
func (s *Summary) Write(w io.Writer) {
	fmt.Fprintln(w, "=== Request Summary ===")
	fmt.Fprintf(w, "Total Requests       : %d\n", s.Total)
	fmt.Fprintf(w, "Fulfilled            : %d\n", s.Fulfilled)
	fmt.Fprintf(w, "Rejected             : %d\n", s.Rejected)
	if s.Fulfilled > 0 {
		fmt.Fprintf(w, "Mean Span            : %.1f\n", s.MeanSpan)
		fmt.Fprintf(w, "Median Span          : %.1f\n", s.MedianSpan)
		fmt.Fprintf(w, "P95 Span             : %.1f\n", s.P95Span)
	}
	if s.FirstRejection >= 0 {
		fmt.Fprintf(w, "First Rejection      : t=%d\n", s.FirstRejection)
	}

	entities := make([]string, 0, len(s.ByEntity))
	for name := range s.ByEntity {
		entities = append(entities, name)
	}
	sort.Strings(entities)
	for _, name := range entities {
		fmt.Fprintf(w, "Requests by %-9s: %d\n", name, s.ByEntity[name])
	}
}
