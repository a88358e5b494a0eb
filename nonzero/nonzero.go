// Package nonzero provides a zero-excluding wrapper around Go's unsigned
// integer types, plus the half-open ranges built from it.
//
// The Collatz function is undefined at zero: every other positive integer
// reaches 1, but zero loops forever on the even rule. Excluding zero at
// construction time lets the arithmetic above this package drop per-step
// guards entirely. A NonZero[T] witnesses "this value was checked once";
// operations that provably preserve non-zeroness (halving an even value,
// stripping trailing zero bits, checked multiplication by a non-zero factor)
// return NonZero[T] directly, and everything else goes back through New.
//
// The zero value of NonZero[T] is invalid. Obtain values through New or
// MustNew only.
package nonzero

import (
	"fmt"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// NonZero wraps an unsigned integer known to be greater than zero.
//
// NonZero values are immutable and safe to copy and share. Comparison
// operators work on the wrapped value via Cmp and Less; arithmetic that can
// overflow is exposed only in checked form.
type NonZero[T constraints.Unsigned] struct {
	v T
}

// New wraps v, returning ErrZero when v is zero.
func New[T constraints.Unsigned](v T) (NonZero[T], error) {
	if v == 0 {
		return NonZero[T]{}, ErrZero
	}
	return NonZero[T]{v: v}, nil
}

// MustNew wraps v and panics if v is zero. Intended for literals and other
// values the caller has already validated.
func MustNew[T constraints.Unsigned](v T) NonZero[T] {
	n, err := New(v)
	if err != nil {
		panic(err)
	}
	return n
}

// unchecked wraps v without validation. Callers must guarantee v != 0; every
// use inside this package relies on an arithmetic argument for why the result
// cannot be zero.
func unchecked[T constraints.Unsigned](v T) NonZero[T] {
	return NonZero[T]{v: v}
}

// MaxValue returns the largest value representable in T.
func MaxValue[T constraints.Unsigned]() T {
	var zero T
	return ^zero
}

// Value returns the wrapped integer.
func (n NonZero[T]) Value() T {
	return n.v
}

// IsOdd reports whether the wrapped value is odd.
func (n NonZero[T]) IsOdd() bool {
	return n.v&1 == 1
}

// IsOne reports whether the wrapped value is exactly one.
func (n NonZero[T]) IsOne() bool {
	return n.v == 1
}

// Cmp compares n and m, returning -1, 0 or +1.
func (n NonZero[T]) Cmp(m NonZero[T]) int {
	switch {
	case n.v < m.v:
		return -1
	case n.v > m.v:
		return 1
	default:
		return 0
	}
}

// Less reports whether n is strictly smaller than m.
func (n NonZero[T]) Less(m NonZero[T]) bool {
	return n.v < m.v
}

// Halve returns n/2. The receiver must be even: halving an even non-zero
// value cannot produce zero, which is what lets the result skip revalidation.
// Halve panics on an odd receiver rather than silently flooring, since for
// n == 1 the floor would be zero and the invariant would break.
func (n NonZero[T]) Halve() NonZero[T] {
	if n.v&1 != 0 {
		panic(fmt.Sprintf("nonzero: Halve of odd value %d", n.v))
	}
	return unchecked(n.v >> 1)
}

// CheckedAdd returns n+d and true, or the zero value and false when the sum
// wraps around T.
func (n NonZero[T]) CheckedAdd(d T) (NonZero[T], bool) {
	s := n.v + d
	if s < n.v {
		return NonZero[T]{}, false
	}
	// No wrap means s >= n.v >= 1.
	return unchecked(s), true
}

// CheckedMul returns n*k and true, or the zero value and false when the
// product wraps around T or k is zero (the product would not be non-zero).
func (n NonZero[T]) CheckedMul(k T) (NonZero[T], bool) {
	if k == 0 {
		return NonZero[T]{}, false
	}
	if n.v > MaxValue[T]()/k {
		return NonZero[T]{}, false
	}
	return unchecked(n.v * k), true
}

// TrailingZeros returns the number of trailing zero bits in the wrapped
// value. The count is the number of times the value divides evenly by two,
// and is always less than the bit width of T because the value is non-zero.
func (n NonZero[T]) TrailingZeros() int {
	// Widening to uint64 preserves the trailing-zero count for any
	// narrower unsigned type.
	return bits.TrailingZeros64(uint64(n.v))
}

// WithoutTrailingZeros returns the wrapped value shifted right until it is
// odd. Only zero bits are discarded, so the result is non-zero and carries
// the same odd part.
func (n NonZero[T]) WithoutTrailingZeros() NonZero[T] {
	return unchecked(n.v >> n.TrailingZeros())
}

// WithoutTrailingZerosCount returns the odd part of the wrapped value
// together with the number of halvings that produced it.
func (n NonZero[T]) WithoutTrailingZerosCount() (NonZero[T], int) {
	tz := n.TrailingZeros()
	return unchecked(n.v >> tz), tz
}

// String implements fmt.Stringer.
func (n NonZero[T]) String() string {
	return fmt.Sprintf("%d", n.v)
}

// Convert re-wraps n in a different unsigned width. Widening always
// succeeds; narrowing fails with a ConversionError when the value does not
// round-trip.
func Convert[U, T constraints.Unsigned](n NonZero[T]) (NonZero[U], error) {
	u := U(n.v)
	if T(u) != n.v {
		return NonZero[U]{}, &ConversionError{Value: uint64(n.v), Target: fmt.Sprintf("%T", u)}
	}
	return NonZero[U]{v: u}, nil
}
