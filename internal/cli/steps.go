package cli

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/spf13/cobra"

	collatz "github.com/Mearkatz/beetle-collatz"
)

// StepsOptions holds flags for the steps command.
type StepsOptions struct {
	*RootOptions
	Strategy string // "shortcut" | "reference"
	Big      bool
}

// StepsEntry is one value with its step count.
type StepsEntry struct {
	Value string `json:"value"`
	Steps uint64 `json:"steps"`
}

// StepsResult holds the output of the steps command.
type StepsResult struct {
	Strategy string       `json:"strategy,omitempty"`
	Entries  []StepsEntry `json:"entries"`
}

// NewStepsCommand creates the steps command.
func NewStepsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StepsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "steps <n> [stop]",
		Short: "Count steps to reach 1",
		Long: `Count Collatz steps for a single value or a half-open range.

With one argument the command reports how many steps <n> takes to reach 1.
With two arguments it reports the count for every value in [n, stop).
Both strategies count identically; reference applies one rule per step,
shortcut batches runs of halvings.

Exit codes:
  0 - Count(s) computed
  1 - Arithmetic overflowed uint64 (retry with --big)
  2 - Command error (bad arguments)

Examples:
  collatz steps 27
  collatz steps 1 73
  collatz steps 27 --strategy reference
  collatz steps 340282366920938463463374607431768211455 --big`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Strategy, "strategy", "shortcut", "step strategy (shortcut|reference)")
	cmd.Flags().BoolVar(&opts.Big, "big", false, "arbitrary-precision arithmetic (single value only)")

	return cmd
}

func runSteps(opts *StepsOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Big {
		if len(args) == 2 {
			return NewExitError(ExitCommandError, "--big computes a single value, not a range")
		}
		return runStepsBig(args[0], formatter)
	}

	strategy, err := parseStrategy(opts.Strategy)
	if err != nil {
		return err
	}

	result := StepsResult{Strategy: opts.Strategy}
	if len(args) == 1 {
		n, err := parseNonZero(args[0], "value")
		if err != nil {
			return err
		}
		steps, err := collatz.StepsWith(strategy, n)
		if err != nil {
			return outputStepsOverflow(formatter, n.Value(), err)
		}
		result.Entries = []StepsEntry{{Value: n.String(), Steps: steps}}
		return outputSteps(formatter, result)
	}

	r, err := parseRange(args[0], args[1])
	if err != nil {
		return err
	}
	for v := range r.Values() {
		steps, err := collatz.StepsWith(strategy, v)
		if err != nil {
			return outputStepsOverflow(formatter, v.Value(), err)
		}
		result.Entries = append(result.Entries, StepsEntry{Value: v.String(), Steps: steps})
	}
	return outputSteps(formatter, result)
}

// runStepsBig counts steps with big.Int arithmetic, which cannot overflow.
func runStepsBig(arg string, formatter *OutputFormatter) error {
	n, ok := new(big.Int).SetString(arg, 10)
	if !ok {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid value %q: expected a decimal integer", arg))
	}
	steps, err := collatz.StepsBig(n)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid value", err)
	}
	result := StepsResult{Entries: []StepsEntry{{Value: n.String(), Steps: steps}}}
	return outputSteps(formatter, result)
}

// parseStrategy maps the flag value to a step-counting strategy.
func parseStrategy(name string) (collatz.Strategy, error) {
	switch name {
	case "shortcut":
		return collatz.StrategyShortcut, nil
	case "reference":
		return collatz.StrategyReference, nil
	default:
		return 0, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid strategy %q: must be shortcut or reference", name))
	}
}

// outputStepsOverflow reports the value whose arithmetic left uint64.
func outputStepsOverflow(f *OutputFormatter, value uint64, err error) error {
	details := map[string]string{"value": strconv.FormatUint(value, 10)}
	return failWith(f, ExitFailure, "E_OVERFLOW",
		fmt.Sprintf("value %d: %v (retry with --big)", value, err), details)
}

// outputSteps prints the computed counts.
func outputSteps(f *OutputFormatter, result StepsResult) error {
	if f.Format == "json" {
		return f.Success(result)
	}

	w := f.Writer
	if len(result.Entries) == 1 {
		e := result.Entries[0]
		fmt.Fprintf(w, "%s reaches 1 in %s steps\n",
			groupDecimal(e.Value), humanPrinter.Sprintf("%d", e.Steps))
		return nil
	}
	for _, e := range result.Entries {
		fmt.Fprintf(w, "steps(%s) = %s\n",
			groupDecimal(e.Value), humanPrinter.Sprintf("%d", e.Steps))
	}
	return nil
}
