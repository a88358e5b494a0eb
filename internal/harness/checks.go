package harness

import (
	"context"
	"fmt"

	collatz "github.com/Mearkatz/beetle-collatz"
	"github.com/Mearkatz/beetle-collatz/nonzero"
	"github.com/Mearkatz/beetle-collatz/scan"
)

// CaseError is returned when a case's expectation does not hold.
// Computation failures (overflow, cancellation) are returned as-is instead.
type CaseError struct {
	Case     string // Case name for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *CaseError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Case, e.Expected, e.Actual)
}

// caseRange builds the half-open range a case declares. Validation has
// already established start >= 1 and stop >= start.
func caseRange(start, stop uint64) (nonzero.Range[uint64], error) {
	s, err := nonzero.New(start)
	if err != nil {
		return nonzero.Range[uint64]{}, err
	}
	e, err := nonzero.New(stop)
	if err != nil {
		return nonzero.Range[uint64]{}, err
	}
	return nonzero.NewRange(s, e)
}

// runCheck verifies convergence of the case's range.
func runCheck(ctx context.Context, c CheckCase) error {
	r, err := caseRange(c.Start, c.Stop)
	if err != nil {
		return err
	}
	switch {
	case c.OddsOnly:
		return scan.CheckRangeOdds(ctx, r, c.Step)
	case c.Workers > 1:
		return scan.CheckRangeParallel(ctx, r, c.Workers)
	default:
		return scan.CheckRange(ctx, r)
	}
}

// runStepTable compares the step count of every value in the case's range
// against the expected table.
func runStepTable(ctx context.Context, st StepTableCase) error {
	for i, want := range st.Expect {
		if err := ctx.Err(); err != nil {
			return err
		}
		v := nonzero.MustNew(st.Start + uint64(i))
		got, err := collatz.Steps(v)
		if err != nil {
			return err
		}
		if got != want {
			return &CaseError{
				Case:     st.Name,
				Expected: fmt.Sprintf("steps(%d) = %d", v.Value(), want),
				Actual:   fmt.Sprintf("%d", got),
			}
		}
	}
	return nil
}

// runRecords compares the maximum record and, when declared, the full
// record sequence of the case's range.
func runRecords(ctx context.Context, rc RecordsCase) error {
	r, err := caseRange(rc.Start, rc.Stop)
	if err != nil {
		return err
	}

	if rc.Max != nil {
		rec, err := scan.MaxRecord(ctx, r)
		if err != nil {
			return err
		}
		if rec.Value != rc.Max.Value || rec.Steps != rc.Max.Steps {
			return &CaseError{
				Case:     rc.Name,
				Expected: fmt.Sprintf("max record (%d, %d)", rc.Max.Value, rc.Max.Steps),
				Actual:   fmt.Sprintf("(%d, %d)", rec.Value, rec.Steps),
			}
		}
	}

	if len(rc.Expect) > 0 {
		records, err := scan.Records(ctx, r)
		if err != nil {
			return err
		}
		if len(records) != len(rc.Expect) {
			return &CaseError{
				Case:     rc.Name,
				Expected: fmt.Sprintf("%d records", len(rc.Expect)),
				Actual:   fmt.Sprintf("%d records", len(records)),
			}
		}
		for i, want := range rc.Expect {
			got := records[i]
			if got.Value != want.Value || got.Steps != want.Steps {
				return &CaseError{
					Case:     rc.Name,
					Expected: fmt.Sprintf("record[%d] = (%d, %d)", i, want.Value, want.Steps),
					Actual:   fmt.Sprintf("(%d, %d)", got.Value, got.Steps),
				}
			}
		}
	}

	return nil
}
