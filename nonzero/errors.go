package nonzero

import (
	"errors"
	"fmt"
)

// ErrZero is returned by New when the candidate value is zero.
var ErrZero = errors.New("nonzero: value must not be zero")

// ConversionError is returned by Convert when a value does not fit in the
// target width. Value carries the source value widened to uint64 and Target
// names the destination type.
type ConversionError struct {
	Value  uint64
	Target string
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("nonzero: %d does not fit in %s", e.Value, e.Target)
}

// IsConversion returns true if the error is a narrowing failure.
// Uses errors.As to handle wrapped errors.
func IsConversion(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce)
}

// RangeError is returned by NewRange when start exceeds stop. Bounds are
// widened to uint64 for reporting.
type RangeError struct {
	Start uint64
	Stop  uint64
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("nonzero: invalid range [%d, %d): start exceeds stop", e.Start, e.Stop)
}

// IsRange returns true if the error is a range construction failure.
// Uses errors.As to handle wrapped errors.
func IsRange(err error) bool {
	var re *RangeError
	return errors.As(err, &re)
}
