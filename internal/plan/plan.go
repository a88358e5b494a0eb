// Package plan loads scan plans from CUE files.
//
// A plan names a range scan so it can be versioned and repeated: the range,
// the kind of scan (convergence check or record tracking), optional
// odds-only stride, worker count, and journal path. The embedded CUE schema
// enforces structure and bounds; parity rules that tie fields together are
// validated in Go after decoding, and every failure carries a stable error
// code and, when available, a source position.
package plan

import (
	"fmt"
)

// Plan is one named scan declaration.
type Plan struct {
	Name     string `json:"-"`
	Kind     string `json:"kind"`
	Start    uint64 `json:"start"`
	Stop     uint64 `json:"stop"`
	OddsOnly bool   `json:"odds_only"`
	Step     uint64 `json:"step,omitempty"`
	Workers  int    `json:"workers"`
	Journal  string `json:"journal,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// ValidationError reports a plan field that violates a rule the schema
// cannot express.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate applies the cross-field rules: an odds-only plan needs an odd
// start and an even step of at least 2, and a plan without odds_only must
// not set step. The schema has already checked bounds and types.
func (p *Plan) Validate() []error {
	var errs []error
	if p.OddsOnly {
		if p.Start%2 == 0 {
			errs = append(errs, &ValidationError{
				Field:   "start",
				Message: fmt.Sprintf("odds-only plan must start odd, got %d", p.Start),
			})
		}
		switch {
		case p.Step == 0:
			errs = append(errs, &ValidationError{
				Field:   "step",
				Message: "odds-only plan requires a step",
			})
		case p.Step%2 != 0:
			errs = append(errs, &ValidationError{
				Field:   "step",
				Message: fmt.Sprintf("odds-only step must be even, got %d", p.Step),
			})
		}
	} else if p.Step != 0 {
		errs = append(errs, &ValidationError{
			Field:   "step",
			Message: "step is only meaningful with odds_only",
		})
	}
	return errs
}
