package collatz

import (
	"fmt"
	"math/bits"

	"golang.org/x/exp/constraints"

	"github.com/Mearkatz/beetle-collatz/nonzero"
)

// Strategy selects how a step counter walks the trajectory.
type Strategy int

const (
	// StrategyShortcut batches every run of halvings into a single
	// trailing-zero count. This is the default and the fast path.
	StrategyShortcut Strategy = iota

	// StrategyReference applies exactly one rule per iteration. It is the
	// oracle the shortcut is validated against and has no other use.
	StrategyReference
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case StrategyShortcut:
		return "shortcut"
	case StrategyReference:
		return "reference"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// oddRuleLimit is the largest v for which 3v+1 still fits in T.
func oddRuleLimit[T constraints.Unsigned]() T {
	return (nonzero.MaxValue[T]() - 1) / 3
}

// trailingZeros widens to uint64, which preserves the count for every
// narrower unsigned type. Callers never pass zero.
func trailingZeros[T constraints.Unsigned](v T) int {
	return bits.TrailingZeros64(uint64(v))
}

// nextOdd advances an odd v to the next odd trajectory element: one 3v+1
// application followed by the whole run of halvings. It returns the new
// value, the number of steps consumed, and false when 3v+1 would wrap T.
func nextOdd[T constraints.Unsigned](v T) (T, uint64, bool) {
	if v > oddRuleLimit[T]() {
		return 0, 0, false
	}
	m := 3*v + 1
	tz := trailingZeros(m)
	return m >> tz, uint64(tz) + 1, true
}

// Steps returns the number of Collatz steps from n to 1 using the shortcut
// strategy. Steps(1) is zero.
func Steps[T constraints.Unsigned](n nonzero.NonZero[T]) (uint64, error) {
	return stepsShortcut(n.Value())
}

// StepsWith returns the number of Collatz steps from n to 1 using the given
// strategy. Both strategies return identical counts; StrategyReference is
// only useful when validating the shortcut.
func StepsWith[T constraints.Unsigned](strategy Strategy, n nonzero.NonZero[T]) (uint64, error) {
	switch strategy {
	case StrategyShortcut:
		return stepsShortcut(n.Value())
	case StrategyReference:
		return stepsReference(n.Value())
	default:
		return 0, fmt.Errorf("collatz: unknown strategy %d", int(strategy))
	}
}

func stepsShortcut[T constraints.Unsigned](v T) (uint64, error) {
	var steps uint64
	if v&1 == 0 {
		tz := trailingZeros(v)
		v >>= tz
		steps = uint64(tz)
	}
	for v != 1 {
		next, n, ok := nextOdd(v)
		if !ok {
			return 0, &OverflowError{Op: "3n+1", Value: uint64(v)}
		}
		v = next
		steps += n
	}
	return steps, nil
}

func stepsReference[T constraints.Unsigned](v T) (uint64, error) {
	var steps uint64
	for v != 1 {
		if v&1 == 1 {
			if v > oddRuleLimit[T]() {
				return 0, &OverflowError{Op: "3n+1", Value: uint64(v)}
			}
			v = 3*v + 1
		} else {
			v >>= 1
		}
		steps++
	}
	return steps, nil
}

// StepsOdd returns the number of Collatz steps from an odd n to 1. It skips
// the initial parity normalization that Steps performs and rejects even
// input with ErrEvenValue.
func StepsOdd[T constraints.Unsigned](n nonzero.NonZero[T]) (uint64, error) {
	if !n.IsOdd() {
		return 0, fmt.Errorf("steps of %d: %w", n.Value(), ErrEvenValue)
	}
	v := n.Value()
	var steps uint64
	for v != 1 {
		next, k, ok := nextOdd(v)
		if !ok {
			return 0, &OverflowError{Op: "3n+1", Value: uint64(v)}
		}
		v = next
		steps += k
	}
	return steps, nil
}

// StepsToDecrease returns the number of Collatz steps until the trajectory
// of n first produces a value strictly below n. Even input needs exactly one
// halving. Odd input walks odd-to-odd batches, and the count includes every
// halving of the final batch even when the trajectory dips below n in the
// middle of it. StepsToDecrease(1) fails with ErrNoDecrease.
func StepsToDecrease[T constraints.Unsigned](n nonzero.NonZero[T]) (uint64, error) {
	if n.IsOne() {
		return 0, ErrNoDecrease
	}
	if !n.IsOdd() {
		return 1, nil
	}
	start := n.Value()
	v := start
	var steps uint64
	for v >= start {
		next, k, ok := nextOdd(v)
		if !ok {
			return 0, &OverflowError{Op: "3n+1", Value: uint64(v)}
		}
		v = next
		steps += k
	}
	return steps, nil
}
