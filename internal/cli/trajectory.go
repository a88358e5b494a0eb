package cli

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	collatz "github.com/Mearkatz/beetle-collatz"
)

// TrajectoryOptions holds flags for the trajectory command.
type TrajectoryOptions struct {
	*RootOptions
	Big bool
}

// TrajectoryResult holds the full fall sequence of one value.
type TrajectoryResult struct {
	Start  string   `json:"start"`
	Steps  uint64   `json:"steps"`
	Peak   string   `json:"peak"`
	Values []string `json:"values"`
}

// NewTrajectoryCommand creates the trajectory command.
func NewTrajectoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrajectoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trajectory <n>",
		Short: "Print the full fall sequence of a value",
		Long: `Print every value <n> visits on its way to 1, one rule per step.

The sequence starts at <n> and ends at 1; its length is the step count
plus one.

Exit codes:
  0 - Trajectory computed
  1 - Arithmetic overflowed uint64 (retry with --big)
  2 - Command error (bad arguments)

Examples:
  collatz trajectory 27
  collatz trajectory 27 --format json
  collatz trajectory 18446744073709551615 --big`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrajectory(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Big, "big", false, "arbitrary-precision arithmetic")

	return cmd
}

func runTrajectory(opts *TrajectoryOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Big {
		n, ok := new(big.Int).SetString(arg, 10)
		if !ok {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("invalid value %q: expected a decimal integer", arg))
		}
		traj, err := collatz.TrajectoryBig(n)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid value", err)
		}
		return outputTrajectory(formatter, bigTrajectoryResult(traj))
	}

	n, err := parseNonZero(arg, "value")
	if err != nil {
		return err
	}
	traj, err := collatz.Trajectory(n)
	if err != nil {
		return outputStepsOverflow(formatter, n.Value(), err)
	}
	return outputTrajectory(formatter, trajectoryResult(traj))
}

func trajectoryResult(traj []uint64) TrajectoryResult {
	result := TrajectoryResult{
		Start:  strconv.FormatUint(traj[0], 10),
		Steps:  uint64(len(traj) - 1),
		Values: make([]string, len(traj)),
	}
	var peak uint64
	for i, v := range traj {
		result.Values[i] = strconv.FormatUint(v, 10)
		if v > peak {
			peak = v
		}
	}
	result.Peak = strconv.FormatUint(peak, 10)
	return result
}

func bigTrajectoryResult(traj []*big.Int) TrajectoryResult {
	result := TrajectoryResult{
		Start:  traj[0].String(),
		Steps:  uint64(len(traj) - 1),
		Values: make([]string, len(traj)),
	}
	peak := traj[0]
	for i, v := range traj {
		result.Values[i] = v.String()
		if v.Cmp(peak) > 0 {
			peak = v
		}
	}
	result.Peak = peak.String()
	return result
}

// outputTrajectory prints the sequence. The header groups digits for
// readability; the sequence itself stays plain so it can be piped.
func outputTrajectory(f *OutputFormatter, result TrajectoryResult) error {
	if f.Format == "json" {
		return f.Success(result)
	}

	w := f.Writer
	fmt.Fprintf(w, "Trajectory of %s: %s steps, peak %s\n",
		groupDecimal(result.Start),
		humanPrinter.Sprintf("%d", result.Steps),
		groupDecimal(result.Peak))
	fmt.Fprintln(w, strings.Join(result.Values, " "))
	return nil
}
