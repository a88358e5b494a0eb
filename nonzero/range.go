package nonzero

import (
	"fmt"
	"iter"

	"golang.org/x/exp/constraints"
)

// Range is a half-open interval [start, stop) of non-zero values.
//
// start <= stop always holds; start == stop is the legal empty range. Both
// bounds are at least one, so every value a Range yields satisfies the
// NonZero invariant without rechecking.
type Range[T constraints.Unsigned] struct {
	start T
	stop  T
}

// NewRange builds the interval [start, stop). A start greater than stop is
// rejected with a RangeError; start equal to stop is the empty range.
func NewRange[T constraints.Unsigned](start, stop NonZero[T]) (Range[T], error) {
	if start.v > stop.v {
		return Range[T]{}, &RangeError{Start: uint64(start.v), Stop: uint64(stop.v)}
	}
	return Range[T]{start: start.v, stop: stop.v}, nil
}

// MustRange builds the interval [start, stop) and panics on a malformed
// pair. Intended for literals and bounds derived from an existing Range.
func MustRange[T constraints.Unsigned](start, stop NonZero[T]) Range[T] {
	r, err := NewRange(start, stop)
	if err != nil {
		panic(err)
	}
	return r
}

// Start returns the inclusive lower bound.
func (r Range[T]) Start() T {
	return r.start
}

// Stop returns the exclusive upper bound.
func (r Range[T]) Stop() T {
	return r.stop
}

// Len returns the number of values in the range.
func (r Range[T]) Len() uint64 {
	return uint64(r.stop - r.start)
}

// Empty reports whether the range contains no values.
func (r Range[T]) Empty() bool {
	return r.start == r.stop
}

// Values yields the range contents in ascending order as a lazy sequence.
// Every yielded value is non-zero by the range invariant.
func (r Range[T]) Values() iter.Seq[NonZero[T]] {
	return func(yield func(NonZero[T]) bool) {
		for v := r.start; v < r.stop; v++ {
			if !yield(unchecked(v)) {
				return
			}
		}
	}
}

// String implements fmt.Stringer using interval notation.
func (r Range[T]) String() string {
	return fmt.Sprintf("[%d, %d)", r.start, r.stop)
}
