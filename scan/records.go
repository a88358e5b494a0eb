package scan

import (
	"context"
	"fmt"

	"golang.org/x/exp/constraints"

	collatz "github.com/Mearkatz/beetle-collatz"
	"github.com/Mearkatz/beetle-collatz/nonzero"
)

// Record pairs a value with its Collatz step count.
type Record[T constraints.Unsigned] struct {
	Value T      `json:"value"`
	Steps uint64 `json:"steps"`
}

// MaxRecord returns the value in r with the most Collatz steps. Ties go to
// the smallest value: a later element replaces the running maximum only
// when its count is strictly greater. The scan is sequential and ascending;
// an empty range fails with ErrEmptyRange, and the first overflowing
// element aborts the scan with a ValueError.
func MaxRecord[T constraints.Unsigned](ctx context.Context, r nonzero.Range[T]) (Record[T], error) {
	if r.Empty() {
		return Record[T]{}, fmt.Errorf("max record over %s: %w", r, ErrEmptyRange)
	}
	var (
		best      Record[T]
		seeded    bool
		processed uint64
	)
	for v := range r.Values() {
		if processed&(pollInterval-1) == 0 {
			if err := ctx.Err(); err != nil {
				return Record[T]{}, err
			}
		}
		processed++
		steps, err := collatz.Steps(v)
		if err != nil {
			return Record[T]{}, &ValueError{Value: uint64(v.Value()), Err: err}
		}
		if !seeded || steps > best.Steps {
			best = Record[T]{Value: v.Value(), Steps: steps}
			seeded = true
		}
	}
	return best, nil
}

// MaxRecordOdds is MaxRecord over the arithmetic progression that starts
// at r.Start() and advances by step, visiting only the members below
// r.Stop(). The start must be odd and the step even and positive, matching
// CheckRangeOdds, so every visited value takes the odd-specialized counter.
// Ties go to the smallest value.
func MaxRecordOdds[T constraints.Unsigned](ctx context.Context, r nonzero.Range[T], step T) (Record[T], error) {
	if r.Empty() {
		return Record[T]{}, fmt.Errorf("max record over %s: %w", r, ErrEmptyRange)
	}
	if r.Start()&1 == 0 {
		return Record[T]{}, fmt.Errorf("scan: odds-only start %d: %w", r.Start(), collatz.ErrEvenValue)
	}
	if step == 0 || step&1 == 1 {
		return Record[T]{}, fmt.Errorf("scan: step %d: %w", step, ErrStepNotEven)
	}
	maxT := nonzero.MaxValue[T]()
	var (
		best      Record[T]
		seeded    bool
		processed uint64
	)
	for v := r.Start(); v < r.Stop(); {
		if processed&(pollInterval-1) == 0 {
			if err := ctx.Err(); err != nil {
				return Record[T]{}, err
			}
		}
		processed++
		steps, err := collatz.StepsOdd(nonzero.MustNew(v))
		if err != nil {
			return Record[T]{}, &ValueError{Value: uint64(v), Err: err}
		}
		if !seeded || steps > best.Steps {
			best = Record[T]{Value: v, Steps: steps}
			seeded = true
		}
		// Stop before an increment that would wrap T.
		if v > maxT-step {
			break
		}
		v += step
	}
	return best, nil
}

// Records returns every record in r in the order set: each returned value
// has a step count strictly greater than everything in r before it. The
// first element of a non-empty range is always included, and the last
// element of the result always equals MaxRecord over the same range. An
// empty range fails with ErrEmptyRange; overflow aborts with a ValueError
// and no partial result.
func Records[T constraints.Unsigned](ctx context.Context, r nonzero.Range[T]) ([]Record[T], error) {
	if r.Empty() {
		return nil, fmt.Errorf("records over %s: %w", r, ErrEmptyRange)
	}
	var (
		records   []Record[T]
		processed uint64
	)
	for v := range r.Values() {
		if processed&(pollInterval-1) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		processed++
		steps, err := collatz.Steps(v)
		if err != nil {
			return nil, &ValueError{Value: uint64(v.Value()), Err: err}
		}
		if len(records) == 0 || steps > records[len(records)-1].Steps {
			records = append(records, Record[T]{Value: v.Value(), Steps: steps})
		}
	}
	return records, nil
}
