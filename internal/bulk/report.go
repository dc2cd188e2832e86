package bulk

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/fatih/structs"
)

type Outcome string

const (
	OutcomePending  Outcome = "PENDING"
	OutcomeSkipped  Outcome = "SKIPPED"
	OutcomeNotFound Outcome = "NOT_FOUND"
	OutcomeSuccess  Outcome = "SUCCESS"
	OutcomeFailed   Outcome = "FAILED"
)

// Terminal outcomes in reporting order.
var Outcomes = []Outcome{OutcomeSuccess, OutcomeNotFound, OutcomeSkipped, OutcomeFailed}

const (
	ReasonMissingPrimary   = "missing primary"
	ReasonMissingAlternate = "missing alternate"
	ReasonNoResources      = "lookup reported matches but returned no resources"
)

// RowResult is the terminal state of one input row. Field order is the report column order.
type RowResult struct {
	Row            int
	PrimaryEmail   string
	AlternateEmail string
	UserId         string
	Outcome        Outcome
	Detail         string
}

type Report struct {
	RunId    string
	Input    string
	Started  time.Time
	Finished time.Time
	Rows     []RowResult
}

func (r *Report) Count(outcome Outcome) int {
	n := 0
	for _, row := range r.Rows {
		if row.Outcome == outcome {
			n++
		}
	}
	return n
}

func (r *Report) Summary() string {
	return fmt.Sprintf("run %s: %d rows, %d succeeded, %d not found, %d skipped, %d failed in %s",
		r.RunId, len(r.Rows),
		r.Count(OutcomeSuccess), r.Count(OutcomeNotFound), r.Count(OutcomeSkipped), r.Count(OutcomeFailed),
		r.Finished.Sub(r.Started).Round(time.Millisecond))
}

// WriteCsv writes one line per row result, with a header taken from RowResult's fields.
func (r *Report) WriteCsv(w io.Writer) error {
	out := csv.NewWriter(w)
	if err := out.Write(structs.Names(RowResult{})); err != nil {
		return err
	}
	for _, row := range r.Rows {
		values := structs.Values(row)
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = fmt.Sprint(v)
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}
