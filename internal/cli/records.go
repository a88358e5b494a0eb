package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mearkatz/beetle-collatz/scan"
)

// RecordsOptions holds flags for the records command.
type RecordsOptions struct {
	*RootOptions
	All     bool
	Workers int
}

// RecordEntry is one step-count record for output.
type RecordEntry struct {
	Value string `json:"value"`
	Steps uint64 `json:"steps"`
}

// RecordsResult holds the records found in a range.
type RecordsResult struct {
	Start   string        `json:"start"`
	Stop    string        `json:"stop"`
	Max     *RecordEntry  `json:"max,omitempty"`
	Records []RecordEntry `json:"records,omitempty"`
}

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "records <start> <stop>",
		Short: "Find step-count records in a range",
		Long: `Find the values in [start, stop) that take more steps than everything
before them.

By default the command reports the single maximum; ties go to the smallest
value. With --all it lists every record in ascending order, ending with
that same maximum.

Exit codes:
  0 - Records computed
  1 - A value overflowed uint64, or the scan was interrupted
  2 - Command error (bad arguments, empty range)

Examples:
  collatz records 1 73
  collatz records 1 1000000 --workers 8
  collatz records 1 73 --all`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "list every record, not just the maximum")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "parallel workers for the maximum search (ignored with --all)")

	return cmd
}

func runRecords(opts *RecordsOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	r, err := parseRange(args[0], args[1])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	result := RecordsResult{
		Start: strconv.FormatUint(r.Start(), 10),
		Stop:  strconv.FormatUint(r.Stop(), 10),
	}

	if opts.All {
		recs, err := scan.Records(ctx, r)
		if err != nil {
			return outputRecordsFailure(formatter, err)
		}
		result.Records = recordEntries(recs)
		return outputRecords(formatter, result)
	}

	var rec scan.Record[uint64]
	if opts.Workers > 1 {
		rec, err = scan.MaxRecordParallel(ctx, r, opts.Workers)
	} else {
		rec, err = scan.MaxRecord(ctx, r)
	}
	if err != nil {
		return outputRecordsFailure(formatter, err)
	}
	result.Max = &RecordEntry{Value: strconv.FormatUint(rec.Value, 10), Steps: rec.Steps}
	return outputRecords(formatter, result)
}

func recordEntries(recs []scan.Record[uint64]) []RecordEntry {
	entries := make([]RecordEntry, len(recs))
	for i, rec := range recs {
		entries[i] = RecordEntry{Value: strconv.FormatUint(rec.Value, 10), Steps: rec.Steps}
	}
	return entries
}

func outputRecordsFailure(f *OutputFormatter, err error) error {
	if errors.Is(err, scan.ErrEmptyRange) {
		return WrapExitError(ExitCommandError, "nothing to scan", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return failWith(f, ExitFailure, "E_RECORDS_FAILED", "record scan interrupted", nil)
	}
	var details interface{}
	if value, ok := scan.FailedValue(err); ok {
		details = map[string]string{"value": strconv.FormatUint(value, 10)}
	}
	return failWith(f, ExitFailure, "E_RECORDS_FAILED", err.Error(), details)
}

func outputRecords(f *OutputFormatter, result RecordsResult) error {
	if f.Format == "json" {
		return f.Success(result)
	}

	w := f.Writer
	if result.Max != nil {
		fmt.Fprintf(w, "Max record in [%s, %s): %s takes %s steps\n",
			groupDecimal(result.Start), groupDecimal(result.Stop),
			groupDecimal(result.Max.Value), humanPrinter.Sprintf("%d", result.Max.Steps))
		return nil
	}
	fmt.Fprintf(w, "Step-count records in [%s, %s):\n",
		groupDecimal(result.Start), groupDecimal(result.Stop))
	for _, rec := range result.Records {
		fmt.Fprintf(w, "  %s: %s steps\n",
			groupDecimal(rec.Value), humanPrinter.Sprintf("%d", rec.Steps))
	}
	return nil
}
