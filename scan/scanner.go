package scan

import (
	"context"
	"fmt"
	"iter"

	"golang.org/x/exp/constraints"

	collatz "github.com/Mearkatz/beetle-collatz"
	"github.com/Mearkatz/beetle-collatz/nonzero"
)

// pollInterval is how many elements a scan processes between context
// checks. Must be a power of two.
const pollInterval = 4096

// CheckRange confirms that the trajectory of every value in r falls
// strictly below its start (1, the global minimum, instead reaches itself).
// The scan visits every element; it stops early only on cancellation or on
// the first value whose arithmetic overflows T, reported as a ValueError.
// An empty range passes vacuously.
func CheckRange[T constraints.Unsigned](ctx context.Context, r nonzero.Range[T]) error {
	var processed uint64
	for v := range r.Values() {
		if processed&(pollInterval-1) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		processed++
		if err := fallsBelow(v); err != nil {
			return &ValueError{Value: uint64(v.Value()), Err: err}
		}
	}
	return nil
}

// CheckRangeOdds is CheckRange over the arithmetic progression that starts
// at r.Start() and advances by step, visiting only the members below
// r.Stop(). The start must be odd and the step even and positive, which
// keeps every visited value odd; even values need no checking because one
// halving already drops them.
func CheckRangeOdds[T constraints.Unsigned](ctx context.Context, r nonzero.Range[T], step T) error {
	if r.Start()&1 == 0 {
		return fmt.Errorf("scan: odds-only start %d: %w", r.Start(), collatz.ErrEvenValue)
	}
	if step == 0 || step&1 == 1 {
		return fmt.Errorf("scan: step %d: %w", step, ErrStepNotEven)
	}
	maxT := nonzero.MaxValue[T]()
	var processed uint64
	for v := r.Start(); v < r.Stop(); {
		if processed&(pollInterval-1) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		processed++
		if err := fallsBelowOdd(nonzero.MustNew(v)); err != nil {
			return &ValueError{Value: uint64(v), Err: err}
		}
		// Stop before an increment that would wrap T.
		if v > maxT-step {
			break
		}
		v += step
	}
	return nil
}

// StepsSeq returns the (value, step count) pairs of r as a lazy ascending
// sequence, plus an error function to consult once iteration stops. The
// sequence ends early at the first value whose arithmetic overflows T; the
// error function then reports it as a ValueError. Iterating again restarts
// the scan from the beginning.
func StepsSeq[T constraints.Unsigned](r nonzero.Range[T]) (iter.Seq2[T, uint64], func() error) {
	var scanErr error
	seq := func(yield func(T, uint64) bool) {
		scanErr = nil
		for v := range r.Values() {
			steps, err := collatz.Steps(v)
			if err != nil {
				scanErr = &ValueError{Value: uint64(v.Value()), Err: err}
				return
			}
			if !yield(v.Value(), steps) {
				return
			}
		}
	}
	return seq, func() error { return scanErr }
}

// fallsBelow confirms the trajectory of v reaches a value strictly below v,
// or reaches 1 when v is itself 1. Halvings are batched by stripping
// trailing zeros; the bound is re-tested between the strip and the next odd
// rule, because a value that strips to 1 maps straight back up to 4 and
// testing only after the rule would never terminate for 1, 2 and 4.
func fallsBelow[T constraints.Unsigned](v nonzero.NonZero[T]) error {
	if v.IsOne() {
		return nil
	}
	cur := v
	for {
		if !cur.IsOdd() {
			cur = cur.WithoutTrailingZeros()
		}
		if cur.Less(v) {
			return nil
		}
		m, err := collatz.OddRule(cur)
		if err != nil {
			return err
		}
		cur = m
	}
}

// fallsBelowOdd is fallsBelow specialized to odd input: the walk goes odd
// to odd, so the parity test disappears from the loop.
func fallsBelowOdd[T constraints.Unsigned](v nonzero.NonZero[T]) error {
	if v.IsOne() {
		return nil
	}
	cur := v
	for {
		m, err := collatz.OddRule(cur)
		if err != nil {
			return err
		}
		cur = m.WithoutTrailingZeros()
		if cur.Less(v) {
			return nil
		}
	}
}
