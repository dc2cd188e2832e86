package bulk

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCsvAndSummary(t *testing.T) {
	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	report := &Report{
		RunId:    "run1",
		Started:  start,
		Finished: start.Add(1500 * time.Millisecond),
		Rows: []RowResult{
			{Row: 1, PrimaryEmail: "alice@example.com", AlternateEmail: "alice.alt@example.com", UserId: "abc123", Outcome: OutcomeSuccess},
			{Row: 2, AlternateEmail: "x@example.com", Outcome: OutcomeSkipped, Detail: ReasonMissingPrimary},
			{Row: 3, PrimaryEmail: "bob@example.com", AlternateEmail: "bob.alt@example.com", Outcome: OutcomeNotFound},
			{Row: 4, PrimaryEmail: "dave@example.com", AlternateEmail: "dave.alt@example.com", UserId: "d1", Outcome: OutcomeFailed, Detail: "email not found on user"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteCsv(&buf))
	assert.Equal(t, "Row,PrimaryEmail,AlternateEmail,UserId,Outcome,Detail\n"+
		"1,alice@example.com,alice.alt@example.com,abc123,SUCCESS,\n"+
		"2,,x@example.com,,SKIPPED,missing primary\n"+
		"3,bob@example.com,bob.alt@example.com,,NOT_FOUND,\n"+
		"4,dave@example.com,dave.alt@example.com,d1,FAILED,email not found on user\n", buf.String())

	assert.Equal(t, "run run1: 4 rows, 1 succeeded, 1 not found, 1 skipped, 1 failed in 1.5s", report.Summary())
}
