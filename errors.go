package collatz

import (
	"errors"
	"fmt"
)

// Sentinel errors for precondition violations detected at entry.
var (
	// ErrEvenValue reports an even value passed to an odd-only operation.
	ErrEvenValue = errors.New("collatz: value is even")

	// ErrNoDecrease reports a decrease count requested for 1, which cycles
	// through 4 and 2 without ever dropping below itself.
	ErrNoDecrease = errors.New("collatz: 1 never drops below itself")

	// ErrNonPositive reports a nil, zero or negative big integer.
	ErrNonPositive = errors.New("collatz: value must be a positive integer")
)

// OverflowError reports fixed-width arithmetic that would wrap.
//
// Op names the rule being applied ("3n+1" or "(3n+1)/2") and Value is the
// operand at the point of overflow, widened to uint64. Callers that walk a
// range wrap this error with the range element being processed; use
// errors.As to recover it through wrapping.
type OverflowError struct {
	Op    string
	Value uint64
}

// Error implements the error interface.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("collatz: %s overflows at %d", e.Op, e.Value)
}

// IsOverflow returns true if the error is a fixed-width overflow.
// Uses errors.As to handle wrapped errors.
func IsOverflow(err error) bool {
	var oe *OverflowError
	return errors.As(err, &oe)
}
