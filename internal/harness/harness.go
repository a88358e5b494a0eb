package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Runner executes conformance suites.
// The zero value is usable; logs are discarded unless Log is set.
type Runner struct {
	Log *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Run executes every case in the suite and returns the aggregated result.
//
// A case whose expectation fails, or whose computation overflows, is
// recorded as a failure and the remaining cases still run. Run itself
// returns an error only when the context is canceled mid-suite.
func (r *Runner) Run(ctx context.Context, suite *Suite) (*Result, error) {
	log := r.logger()
	result := NewResult(suite.Name)

	abort := func(err error) (*Result, error) {
		return nil, fmt.Errorf("suite %s: %w", suite.Name, err)
	}

	for _, c := range suite.Checks {
		if err := runCheck(ctx, c); err != nil {
			if canceled(err) {
				return abort(err)
			}
			result.AddFailure(SectionChecks, c.Name, err)
			log.Warn("check case failed", "suite", suite.Name, "case", c.Name, "error", err)
			continue
		}
		result.AddPass(SectionChecks, c.Name)
		log.Debug("check case passed", "suite", suite.Name, "case", c.Name)
	}

	for _, st := range suite.StepTables {
		if err := runStepTable(ctx, st); err != nil {
			if canceled(err) {
				return abort(err)
			}
			result.AddFailure(SectionStepTables, st.Name, err)
			log.Warn("step table case failed", "suite", suite.Name, "case", st.Name, "error", err)
			continue
		}
		result.AddPass(SectionStepTables, st.Name)
		log.Debug("step table case passed", "suite", suite.Name, "case", st.Name)
	}

	for _, rc := range suite.Records {
		if err := runRecords(ctx, rc); err != nil {
			if canceled(err) {
				return abort(err)
			}
			result.AddFailure(SectionRecords, rc.Name, err)
			log.Warn("records case failed", "suite", suite.Name, "case", rc.Name, "error", err)
			continue
		}
		result.AddPass(SectionRecords, rc.Name)
		log.Debug("records case passed", "suite", suite.Name, "case", rc.Name)
	}

	log.Info("suite finished",
		"suite", suite.Name,
		"cases", len(result.Cases),
		"failures", len(result.Failures),
		"pass", result.Pass,
	)
	return result, nil
}

// canceled reports whether err is a context cancellation rather than a
// case failure.
func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
