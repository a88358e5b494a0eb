package cli

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	collatz "github.com/Mearkatz/beetle-collatz"
	"github.com/Mearkatz/beetle-collatz/nonzero"
	"github.com/Mearkatz/beetle-collatz/scan"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Odds    bool
	Step    uint64
	Workers int
}

// CheckResult holds the outcome of a convergence check.
type CheckResult struct {
	Start    string `json:"start"`
	Stop     string `json:"stop"`
	Values   uint64 `json:"values"`
	OddsOnly bool   `json:"odds_only,omitempty"`
	Step     uint64 `json:"step,omitempty"`
	Workers  int    `json:"workers,omitempty"`
	Verified bool   `json:"verified"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <start> <stop>",
		Short: "Verify convergence over a range",
		Long: `Verify that every value in the half-open range [start, stop) falls to 1.

Each value only needs to fall below its start, because everything beneath
it has already been verified. With --odds the scan walks an arithmetic
progression of odd values instead; even values never need checking.

Exit codes:
  0 - Every value verified
  1 - A value overflowed uint64, or the check was interrupted
  2 - Command error (bad arguments)

Examples:
  collatz check 1 1000000
  collatz check 1 1000000 --workers 8
  collatz check 1 1000000 --odds --step 2`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Odds, "odds", false, "walk only odd values")
	cmd.Flags().Uint64Var(&opts.Step, "step", 2, "stride between odd values (with --odds)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "parallel workers")

	return cmd
}

func runCheck(opts *CheckOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if !opts.Odds && cmd.Flags().Changed("step") {
		return NewExitError(ExitCommandError, "--step requires --odds")
	}
	if opts.Odds && opts.Workers > 1 {
		return NewExitError(ExitCommandError, "--workers cannot be combined with --odds")
	}

	r, err := parseRange(args[0], args[1])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	result := CheckResult{
		Start:    strconv.FormatUint(r.Start(), 10),
		Stop:     strconv.FormatUint(r.Stop(), 10),
		Values:   r.Len(),
		OddsOnly: opts.Odds,
		Workers:  opts.Workers,
	}

	began := time.Now()
	switch {
	case opts.Odds:
		result.Step = opts.Step
		result.Values = strideLen(r, opts.Step)
		err = scan.CheckRangeOdds(ctx, r, opts.Step)
	case opts.Workers > 1:
		err = scan.CheckRangeParallel(ctx, r, opts.Workers)
	default:
		err = scan.CheckRange(ctx, r)
	}
	if err != nil {
		return outputCheckFailure(formatter, err)
	}
	slog.Debug("range checked", "range", r.String(), "values", result.Values, "elapsed", time.Since(began))

	result.Verified = true
	return outputCheckSuccess(formatter, result)
}

// strideLen counts the members of r an odds-only walk with the given step
// visits.
func strideLen(r nonzero.Range[uint64], step uint64) uint64 {
	if r.Empty() || step == 0 {
		return 0
	}
	return (r.Len() + step - 1) / step
}

func outputCheckFailure(f *OutputFormatter, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return failWith(f, ExitFailure, "E_CHECK_FAILED", "check interrupted", nil)
	}
	// Odds-only argument problems surface from the scan itself.
	if errors.Is(err, collatz.ErrEvenValue) || errors.Is(err, scan.ErrStepNotEven) {
		return WrapExitError(ExitCommandError, "invalid odds-only walk", err)
	}
	var details interface{}
	if value, ok := scan.FailedValue(err); ok {
		details = map[string]string{"value": strconv.FormatUint(value, 10)}
	}
	return failWith(f, ExitFailure, "E_CHECK_FAILED", err.Error(), details)
}

func outputCheckSuccess(f *OutputFormatter, result CheckResult) error {
	if f.Format == "json" {
		return f.Success(result)
	}

	humanPrinter.Fprintf(f.Writer, "✓ all %d values in [%s, %s) fall to 1\n",
		result.Values, groupDecimal(result.Start), groupDecimal(result.Stop))
	return nil
}
