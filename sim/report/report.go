// Package report holds the canonical observable output of a run: the
// ordered stream of resolved allocation requests, plus aggregate summaries
// derived from it. Pure data; nothing here touches simulation state.
package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// Outcome is the terminal state of one resolution record.
type Outcome string

const (
	OutcomeFulfilled Outcome = "fulfilled"
	OutcomeRejected  Outcome = "rejected"
)

// ResolutionRecord is the flattened form of one resolved request:
// replenishment requests made up the hierarchy appear as records of their
// own, so the stream shows the full cascade.
type ResolutionRecord struct {
	Entity   string
	Supplier string
	Time     int64
	Span     uint64
	Outcome  Outcome
	Prefix   string // empty when rejected
	Reason   string // empty when fulfilled
}

// RunReport collects resolution records in the order they resolved.
type RunReport struct {
	Records []ResolutionRecord
}

func NewRunReport() *RunReport {
	return &RunReport{}
}

func (r *RunReport) Append(rec ResolutionRecord) {
	r.Records = append(r.Records, rec)
}

// WriteCSV emits the records with a header row.
func (r *RunReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "entity", "supplier", "span", "outcome", "prefix", "reason"}); err != nil {
		return err
	}
	for _, rec := range r.Records {
		row := []string{
			strconv.FormatInt(rec.Time, 10),
			rec.Entity,
			rec.Supplier,
			strconv.FormatUint(rec.Span, 10),
			string(rec.Outcome),
			rec.Prefix,
			rec.Reason,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
