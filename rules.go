package collatz

import (
	"golang.org/x/exp/constraints"

	"github.com/Mearkatz/beetle-collatz/nonzero"
)

// OddRule applies 3n+1. The receiver should be odd; the rule is still
// well-defined for even input, so parity is the caller's contract rather
// than a checked precondition. Overflow of 3n+1 is detected and reported.
func OddRule[T constraints.Unsigned](n nonzero.NonZero[T]) (nonzero.NonZero[T], error) {
	m, ok := n.CheckedMul(3)
	if !ok {
		return nonzero.NonZero[T]{}, &OverflowError{Op: "3n+1", Value: uint64(n.Value())}
	}
	m, ok = m.CheckedAdd(1)
	if !ok {
		return nonzero.NonZero[T]{}, &OverflowError{Op: "3n+1", Value: uint64(n.Value())}
	}
	return m, nil
}

// EvenRule applies n/2. The receiver must be even; halving cannot overflow,
// so the rule always succeeds.
func EvenRule[T constraints.Unsigned](n nonzero.NonZero[T]) nonzero.NonZero[T] {
	return n.Halve()
}

// Apply performs one Collatz step, dispatching on parity.
func Apply[T constraints.Unsigned](n nonzero.NonZero[T]) (nonzero.NonZero[T], error) {
	if n.IsOdd() {
		return OddRule(n)
	}
	return EvenRule(n), nil
}

// ApplyHalvingOdds performs one step of the variant that maps an odd n to
// (3n+1)/2 and an even n to n/2. The odd branch computes n + n/2 + 1, which
// is the same value without forming the wider intermediate 3n+1, so inputs
// up to roughly two-thirds of the type maximum stay representable. The odd
// branch advances the trajectory by two rule applications, not one; callers
// counting steps must account for both.
func ApplyHalvingOdds[T constraints.Unsigned](n nonzero.NonZero[T]) (nonzero.NonZero[T], error) {
	if !n.IsOdd() {
		return n.Halve(), nil
	}
	m, ok := n.CheckedAdd(n.Value() >> 1)
	if !ok {
		return nonzero.NonZero[T]{}, &OverflowError{Op: "(3n+1)/2", Value: uint64(n.Value())}
	}
	m, ok = m.CheckedAdd(1)
	if !ok {
		return nonzero.NonZero[T]{}, &OverflowError{Op: "(3n+1)/2", Value: uint64(n.Value())}
	}
	return m, nil
}

// ApplyShortcut performs one compound step: 3n+1 for odd input, then all
// pending halvings at once by stripping trailing zero bits. Odd input maps
// to the next odd trajectory element; even input maps to its odd part. One
// is a fixed point (1 -> 4 -> 1).
func ApplyShortcut[T constraints.Unsigned](n nonzero.NonZero[T]) (nonzero.NonZero[T], error) {
	if n.IsOdd() {
		m, err := OddRule(n)
		if err != nil {
			return nonzero.NonZero[T]{}, err
		}
		return m.WithoutTrailingZeros(), nil
	}
	return n.WithoutTrailingZeros(), nil
}
