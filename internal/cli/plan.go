package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mearkatz/beetle-collatz/internal/journal"
	"github.com/Mearkatz/beetle-collatz/internal/plan"
	"github.com/Mearkatz/beetle-collatz/nonzero"
	"github.com/Mearkatz/beetle-collatz/scan"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Run bool
}

// PlanInfo is one validated plan for output.
type PlanInfo struct {
	Name string `json:"name"`
	plan.Plan
}

// PlanIssue is one validation finding.
type PlanIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PlanValidation holds the outcome of validating a plan directory.
type PlanValidation struct {
	Valid  bool        `json:"valid"`
	Plans  []PlanInfo  `json:"plans,omitempty"`
	Errors []PlanIssue `json:"errors,omitempty"`
}

// PlanRunOutcome is one executed plan.
type PlanRunOutcome struct {
	Name  string       `json:"name"`
	Kind  string       `json:"kind"`
	Pass  bool         `json:"pass"`
	Token string       `json:"token,omitempty"`
	Max   *RecordEntry `json:"max,omitempty"`
	Error string       `json:"error,omitempty"`
}

// PlanRunSummary aggregates the executed plans.
type PlanRunSummary struct {
	Plans  []PlanRunOutcome `json:"plans"`
	Passed int              `json:"passed"`
	Failed int              `json:"failed"`
	Total  int              `json:"total"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <dir>",
		Short: "Validate or run declarative scan plans",
		Long: `Validate the CUE scan plans in a directory, or run them with --run.

Plans declare a scan once (kind, range, stride, workers, journal) and the
schema plus cross-field rules reject impossible ones before anything is
computed. Runs execute the plans in name order; a plan with a journal
writes through it like the scan command does.

Exit codes:
  0 - All plans valid (or all runs passed)
  1 - Validation errors, or a plan run failed
  2 - Command error (directory missing, no CUE files)

Examples:
  collatz plan ./plans
  collatz plan ./plans --run
  collatz plan ./plans --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Run, "run", false, "execute the plans after validating them")

	return cmd
}

func runPlan(opts *PlanOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := plan.LoadPlans(dir, plan.LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *plan.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return failWith(formatter, ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return failWith(formatter, ExitCommandError, plan.ErrCodeGeneric, loadErrors[0].Error(), nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	if len(loadErrors) > 0 {
		return outputPlanErrors(formatter, loadErrors)
	}

	plans := append([]plan.Plan(nil), loadResult.Plans...)
	sort.Slice(plans, func(i, j int) bool { return plans[i].Name < plans[j].Name })

	if !opts.Run {
		return outputPlanList(formatter, plans)
	}
	return runPlans(dir, plans, cmd, formatter)
}

// outputPlanErrors reports every validation finding and fails the command.
func outputPlanErrors(f *OutputFormatter, loadErrors []error) error {
	issues := make([]PlanIssue, 0, len(loadErrors))
	for _, err := range loadErrors {
		var loadErr *plan.LoadError
		if errors.As(err, &loadErr) {
			issues = append(issues, PlanIssue{Code: loadErr.Code, Message: loadErr.Message})
		} else {
			issues = append(issues, PlanIssue{Code: plan.ErrCodeGeneric, Message: err.Error()})
		}
	}

	if f.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   PlanValidation{Valid: false, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}
		if err := writeResponse(f.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	w := f.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, issue := range issues {
		fmt.Fprintf(w, "  %s: %s\n", issue.Code, issue.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}

func outputPlanList(f *OutputFormatter, plans []plan.Plan) error {
	if f.Format == "json" {
		infos := make([]PlanInfo, len(plans))
		for i, p := range plans {
			infos[i] = PlanInfo{Name: p.Name, Plan: p}
		}
		return f.Success(PlanValidation{Valid: true, Plans: infos})
	}

	w := f.Writer
	fmt.Fprintf(w, "✓ %d plan(s) valid\n", len(plans))
	fmt.Fprintln(w)
	for _, p := range plans {
		fmt.Fprintf(w, "  %-12s %s\n", p.Name, planDescription(p))
	}
	return nil
}

// planDescription renders one plan for the text listing.
func planDescription(p plan.Plan) string {
	desc := fmt.Sprintf("%s [%s, %s)", p.Kind,
		humanPrinter.Sprintf("%d", p.Start), humanPrinter.Sprintf("%d", p.Stop))
	if p.OddsOnly {
		desc += humanPrinter.Sprintf(", odds with step %d", p.Step)
	}
	if p.Workers > 0 {
		desc += fmt.Sprintf(", %d workers", p.Workers)
	}
	if p.Journal != "" {
		desc += ", journaled to " + p.Journal
	}
	return desc
}

// runPlans executes every plan in name order, reporting each outcome as it
// lands. A failing plan does not stop the ones after it; cancellation does.
func runPlans(dir string, plans []plan.Plan, cmd *cobra.Command, formatter *OutputFormatter) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	w := formatter.Writer
	summary := PlanRunSummary{Total: len(plans)}
	for _, p := range plans {
		outcome := executePlan(ctx, dir, p)
		summary.Plans = append(summary.Plans, outcome)
		if outcome.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}

		if formatter.Format != "json" {
			if outcome.Pass {
				line := "✓ " + p.Name
				if outcome.Max != nil {
					line += fmt.Sprintf(" (max %s at %s steps)",
						groupDecimal(outcome.Max.Value), humanPrinter.Sprintf("%d", outcome.Max.Steps))
				}
				if outcome.Token != "" {
					line += " run " + truncateToken(outcome.Token)
				}
				fmt.Fprintln(w, line)
			} else {
				fmt.Fprintf(w, "✗ %s\n", p.Name)
				fmt.Fprintf(w, "  %s\n", outcome.Error)
			}
		}
		if ctx.Err() != nil {
			return failWith(formatter, ExitFailure, "E_PLAN_FAILED", "plan run interrupted", nil)
		}
	}
	return outputPlanRun(formatter, summary)
}

// executePlan runs one plan to completion. Journaled plans write through a
// journal resolved against the plan directory; direct plans only compute.
func executePlan(ctx context.Context, dir string, p plan.Plan) PlanRunOutcome {
	outcome := PlanRunOutcome{Name: p.Name, Kind: p.Kind}

	r, err := planRange(p)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	if p.Journal != "" {
		return executeJournaledPlan(ctx, dir, p, r, outcome)
	}

	switch {
	case p.Kind == "check" && p.OddsOnly:
		err = scan.CheckRangeOdds(ctx, r, p.Step)
	case p.Kind == "check" && p.Workers > 1:
		err = scan.CheckRangeParallel(ctx, r, p.Workers)
	case p.Kind == "check":
		err = scan.CheckRange(ctx, r)
	case p.OddsOnly:
		var rec scan.Record[uint64]
		rec, err = scan.MaxRecordOdds(ctx, r, p.Step)
		if err == nil {
			outcome.Max = &RecordEntry{Value: strconv.FormatUint(rec.Value, 10), Steps: rec.Steps}
		}
	default:
		var rec scan.Record[uint64]
		rec, err = scan.MaxRecordParallel(ctx, r, p.Workers)
		if err == nil {
			outcome.Max = &RecordEntry{Value: strconv.FormatUint(rec.Value, 10), Steps: rec.Steps}
		}
	}
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Pass = true
	return outcome
}

// executeJournaledPlan runs a plan through a journal, exactly like the scan
// command. The journal schema has no odds columns, so odds-only plans must
// run direct.
func executeJournaledPlan(ctx context.Context, dir string, p plan.Plan, r nonzero.Range[uint64], outcome PlanRunOutcome) PlanRunOutcome {
	if p.OddsOnly {
		outcome.Error = "odds-only plans cannot be journaled"
		return outcome
	}
	path := p.Journal
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	j, err := journal.Open(path)
	if err != nil {
		outcome.Error = fmt.Sprintf("failed to open journal: %v", err)
		return outcome
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			slog.Error("error closing journal", "path", path, "error", closeErr)
		}
	}()

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	token := newRunToken.Generate()
	run, err := startRun(ctx, j, token, journal.RunKind(p.Kind), r, workers, workers*4)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Token = run.Token

	if err := executeRun(ctx, j, run); err != nil {
		var failValue *uint64
		if value, ok := scan.FailedValue(err); ok {
			failValue = &value
		}
		// A canceled run stays running in the journal, so it can resume.
		if ctx.Err() == nil {
			if finishErr := j.FinishRun(ctx, run.Token, journal.StatusFailed, failValue); finishErr != nil {
				slog.Error("failed to record run failure", "run", truncateToken(run.Token), "error", finishErr)
			}
		}
		outcome.Error = err.Error()
		return outcome
	}
	if err := j.FinishRun(ctx, run.Token, journal.StatusDone, nil); err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	if run.Kind == journal.KindRecords {
		rows, err := j.GlobalRecords(ctx, run.Token)
		if err == nil && len(rows) > 0 {
			last := rows[len(rows)-1]
			outcome.Max = &RecordEntry{Value: strconv.FormatUint(last.Value, 10), Steps: last.Steps}
		}
	}
	outcome.Pass = true
	return outcome
}

// planRange rebuilds the range a validated plan covers.
func planRange(p plan.Plan) (nonzero.Range[uint64], error) {
	var zero nonzero.Range[uint64]
	start, err := nonzero.New(p.Start)
	if err != nil {
		return zero, fmt.Errorf("plan %s: start: %w", p.Name, err)
	}
	stop, err := nonzero.New(p.Stop)
	if err != nil {
		return zero, fmt.Errorf("plan %s: stop: %w", p.Name, err)
	}
	r, err := nonzero.NewRange(start, stop)
	if err != nil {
		return zero, fmt.Errorf("plan %s: %w", p.Name, err)
	}
	return r, nil
}

func outputPlanRun(f *OutputFormatter, summary PlanRunSummary) error {
	if f.Format == "json" {
		response := CLIResponse{Status: "ok", Data: summary}
		if summary.Failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_PLAN_FAILED",
				Message: fmt.Sprintf("%d plan(s) failed", summary.Failed),
			}
		}
		if err := writeResponse(f.Writer, response); err != nil {
			return err
		}
	} else {
		w := f.Writer
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Plan Summary: %d passed, %d failed, %d total\n",
			summary.Passed, summary.Failed, summary.Total)
		if summary.Failed == 0 {
			fmt.Fprintln(w, "✓ All plans passed")
		}
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d plan(s) failed", summary.Failed))
	}
	return nil
}
