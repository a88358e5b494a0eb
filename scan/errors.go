package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRange reports a record query over a range with no values.
	ErrEmptyRange = errors.New("scan: empty range")

	// ErrStepNotEven reports an odds-only stride that is zero or odd.
	ErrStepNotEven = errors.New("scan: step must be an even positive number")
)

// ValueError attaches the range element being processed to a failure from
// the arithmetic underneath. Err is the underlying cause, usually a
// collatz.OverflowError carrying the exact operand that wrapped.
type ValueError struct {
	Value uint64
	Err   error
}

// Error implements the error interface.
func (e *ValueError) Error() string {
	return fmt.Sprintf("scan: value %d: %v", e.Value, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *ValueError) Unwrap() error {
	return e.Err
}

// FailedValue returns the range element a scan failed on, when the error
// carries one. Uses errors.As to handle wrapped errors.
func FailedValue(err error) (uint64, bool) {
	var ve *ValueError
	if errors.As(err, &ve) {
		return ve.Value, true
	}
	return 0, false
}
