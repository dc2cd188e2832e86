package bulk

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"slices"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/i2-open/i2goScimBulk/pkg/goScim/client"
	"github.com/i2-open/i2goScimBulk/pkg/goScim/operations"
	"github.com/i2-open/i2goScimBulk/pkg/goScim/resource"
)

var bulkLog = log.New(os.Stdout, "BULK: ", log.Ldate|log.Ltime)

const (
	DefaultPrimaryColumn   = "primary_email"
	DefaultAlternateColumn = "alternate_email"
)

// Directory is the part of the SCIM client the processor drives.
type Directory interface {
	LookupByUsername(ctx context.Context, filter string) (*resource.ListResponse, error)
	RemoveEmail(ctx context.Context, userId string, email string) (*resource.ScimResource, error)
}

type Columns struct {
	Primary   string
	Alternate string
}

func (c Columns) withDefaults() Columns {
	if c.Primary == "" {
		c.Primary = DefaultPrimaryColumn
	}
	if c.Alternate == "" {
		c.Alternate = DefaultAlternateColumn
	}
	return c
}

// Processor removes one alternate email per input row. Rows are handled one at a time
// in input order and a failure on one row never stops the next.
type Processor struct {
	Log     *log.Logger
	Metrics *Metrics
	Now     func() time.Time
}

func NewProcessor(metrics *Metrics) *Processor {
	return &Processor{Log: bulkLog, Metrics: metrics, Now: time.Now}
}

// Run processes every row of src against dir. The returned report is never nil. The
// error is non-nil only when the input could not be read to the end or ctx was
// cancelled; per-row failures are recorded in the report instead.
func (p *Processor) Run(ctx context.Context, dir Directory, src Source, inputName string, cols Columns) (*Report, error) {
	logger := p.logger()
	now := p.now()
	cols = cols.withDefaults()

	report := &Report{
		RunId:   ksuid.New().String(),
		Input:   inputName,
		Started: now(),
	}
	defer func() { report.Finished = now() }()

	logger.Printf("[%s] Starting processing for file: %s", report.RunId, inputName)
	logger.Printf("[%s] Reading primary email from '%s' column and alternate email from '%s' column.", report.RunId, cols.Primary, cols.Alternate)
	for _, col := range []string{cols.Primary, cols.Alternate} {
		if !slices.Contains(src.Header(), col) {
			logger.Printf("WARNING: column '%s' not found in header %v; every row will be skipped", col, src.Header())
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Printf("FATAL ERROR: reading input after row %d: %s", len(report.Rows), err.Error())
			return report, err
		}

		result := p.processRow(ctx, dir, row, cols)
		p.Metrics.row(result.Outcome)
		report.Rows = append(report.Rows, result)
	}

	report.Finished = now()
	logger.Println(report.Summary())
	return report, nil
}

func (p *Processor) processRow(ctx context.Context, dir Directory, row InputRow, cols Columns) RowResult {
	logger := p.logger()
	result := RowResult{
		Row:            row.Number,
		PrimaryEmail:   row.Get(cols.Primary),
		AlternateEmail: row.Get(cols.Alternate),
		Outcome:        OutcomePending,
	}

	if result.PrimaryEmail == "" {
		logger.Printf("SKIPPING row %d: Primary email column '%s' is empty.", row.Number, cols.Primary)
		return result.finish(OutcomeSkipped, ReasonMissingPrimary)
	}
	if result.AlternateEmail == "" {
		logger.Printf("SKIPPING row %d for user '%s': Alternate email column '%s' is empty.", row.Number, result.PrimaryEmail, cols.Alternate)
		return result.finish(OutcomeSkipped, ReasonMissingAlternate)
	}

	logger.Printf("Row %d: looking up SCIM id for '%s'", row.Number, result.PrimaryEmail)
	found, err := dir.LookupByUsername(ctx, operations.UserNameFilter(result.PrimaryEmail))
	if err != nil {
		p.Metrics.failure("lookup", client.ErrorKind(err))
		logger.Printf("ERROR row %d processing user '%s': %s", row.Number, result.PrimaryEmail, err.Error())
		return result.finish(OutcomeFailed, errorDetail(err))
	}
	if found == nil || found.TotalResults == 0 {
		logger.Printf("WARNING row %d: user '%s' not found in directory. Skipping.", row.Number, result.PrimaryEmail)
		return result.finish(OutcomeNotFound, "")
	}
	if len(found.Resources) == 0 {
		p.Metrics.failure("lookup", "other")
		logger.Printf("ERROR row %d processing user '%s': %s", row.Number, result.PrimaryEmail, ReasonNoResources)
		return result.finish(OutcomeFailed, ReasonNoResources)
	}
	if found.TotalResults > 1 {
		logger.Printf("WARNING row %d: %d users match '%s'; using the first (%s)", row.Number, found.TotalResults, result.PrimaryEmail, found.FirstId())
	}

	result.UserId = found.FirstId()
	logger.Printf("Row %d: found SCIM id %s, removing '%s'", row.Number, result.UserId, result.AlternateEmail)

	if _, err = dir.RemoveEmail(ctx, result.UserId, result.AlternateEmail); err != nil {
		p.Metrics.failure("patch", client.ErrorKind(err))
		logger.Printf("ERROR row %d processing user '%s': %s", row.Number, result.PrimaryEmail, err.Error())
		return result.finish(OutcomeFailed, errorDetail(err))
	}

	logger.Printf("SUCCESS row %d: removed '%s' from '%s'", row.Number, result.AlternateEmail, result.PrimaryEmail)
	return result.finish(OutcomeSuccess, "")
}

func (r RowResult) finish(outcome Outcome, detail string) RowResult {
	r.Outcome = outcome
	r.Detail = detail
	return r
}

// errorDetail prefers the directory's own explanation over the full error text.
func errorDetail(err error) string {
	var herr *client.HttpError
	if errors.As(err, &herr) && herr.Detail != "" {
		return herr.Detail
	}
	return err.Error()
}

func (p *Processor) logger() *log.Logger {
	if p.Log == nil {
		return bulkLog
	}
	return p.Log
}

func (p *Processor) now() func() time.Time {
	if p.Now == nil {
		return time.Now
	}
	return p.Now
}
