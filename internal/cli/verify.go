package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Mearkatz/beetle-collatz/internal/harness"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
}

// VerifyResult aggregates the executed suites. The counts are per case,
// not per suite.
type VerifyResult struct {
	Suites []*harness.Result `json:"suites"`
	Passed int               `json:"passed"`
	Failed int               `json:"failed"`
	Total  int               `json:"total"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <dir>",
		Short: "Run conformance suites",
		Long: `Run the YAML conformance suites in a directory.

Each suite declares convergence checks, step-count expectations and record
expectations; every case runs against the real scanners and failures are
reported per case.

Exit codes:
  0 - Every case passed
  1 - One or more cases failed
  2 - Command error (directory missing, malformed suite)

Examples:
  collatz verify ./suites
  collatz verify ./suites --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	return cmd
}

func runVerify(opts *VerifyOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	suites, err := harness.LoadSuiteDir(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load suites", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	runner := &harness.Runner{Log: slog.Default()}
	w := formatter.Writer
	var result VerifyResult
	for _, suite := range suites {
		suiteResult, err := runner.Run(ctx, suite)
		if err != nil {
			return failWith(formatter, ExitFailure, "E_VERIFY_FAILED", err.Error(), nil)
		}
		result.Suites = append(result.Suites, suiteResult)
		result.Total += len(suiteResult.Cases)
		result.Failed += len(suiteResult.Failures)
		result.Passed += len(suiteResult.Cases) - len(suiteResult.Failures)

		if formatter.Format != "json" {
			if suiteResult.Pass {
				fmt.Fprintf(w, "✓ %s (%d cases)\n", suite.Name, len(suiteResult.Cases))
			} else {
				fmt.Fprintf(w, "✗ %s\n", suite.Name)
				for _, c := range suiteResult.Cases {
					if c.Pass {
						continue
					}
					fmt.Fprintf(w, "  %s/%s: %s\n", c.Section, c.Name, c.Detail)
				}
			}
		}
	}
	return outputVerify(formatter, result)
}

func outputVerify(f *OutputFormatter, result VerifyResult) error {
	if f.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_VERIFY_FAILED",
				Message: fmt.Sprintf("%d case(s) failed", result.Failed),
			}
		}
		if err := writeResponse(f.Writer, response); err != nil {
			return err
		}
	} else {
		w := f.Writer
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Verify Summary: %d passed, %d failed, %d total\n",
			result.Passed, result.Failed, result.Total)
		if result.Failed == 0 {
			fmt.Fprintln(w, "✓ All suites passed")
		}
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}
	return nil
}
