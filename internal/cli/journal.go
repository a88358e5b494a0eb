package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mearkatz/beetle-collatz/internal/journal"
)

// JournalOptions holds flags for the journal command and its subcommands.
type JournalOptions struct {
	*RootOptions
	Database string
	Run      string
}

// RunInfo is one journaled run for output. Values are decimal strings,
// matching how the journal stores them.
type RunInfo struct {
	Token     string `json:"token"`
	Kind      string `json:"kind"`
	Start     string `json:"start"`
	Stop      string `json:"stop"`
	Workers   int    `json:"workers"`
	Segments  int    `json:"segments"`
	Status    string `json:"status"`
	FailValue string `json:"fail_value,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SegmentInfo is one journaled segment for output.
type SegmentInfo struct {
	Idx       int    `json:"idx"`
	Start     string `json:"start"`
	Stop      string `json:"stop"`
	Status    string `json:"status"`
	MaxValue  string `json:"max_value,omitempty"`
	MaxSteps  uint64 `json:"max_steps,omitempty"`
	FailValue string `json:"fail_value,omitempty"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect a scan journal",
		Long: `Inspect the runs, segments and records stored in a scan journal.

Examples:
  collatz journal runs --db scans.db
  collatz journal segments --db scans.db --run <token>
  collatz journal records --db scans.db --run <token>`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the journal database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newJournalRunsCommand(opts))
	cmd.AddCommand(newJournalSegmentsCommand(opts))
	cmd.AddCommand(newJournalRecordsCommand(opts))

	return cmd
}

func newJournalRunsCommand(opts *JournalOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "runs",
		Short:         "List journaled runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalRuns(opts, cmd)
		},
	}
}

func newJournalSegmentsCommand(opts *JournalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "segments",
		Short:         "List the segments of a run",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalSegments(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Run, "run", "", "run token (required)")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func newJournalRecordsCommand(opts *JournalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "records",
		Short:         "List the records of a run",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalRecords(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Run, "run", "", "run token (required)")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

// openJournal opens an existing journal for inspection. Unlike scan, it
// refuses to create a database that is not there.
func openJournal(path string) (*journal.Journal, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path))
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return j, nil
}

func runJournalRuns(opts *JournalOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	j, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read runs", err)
	}
	infos := make([]RunInfo, len(runs))
	for i, run := range runs {
		infos[i] = runInfo(run)
	}
	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	w := formatter.Writer
	if len(infos) == 0 {
		fmt.Fprintln(w, "No runs journaled.")
		return nil
	}
	fmt.Fprintln(w, "=== Runs ===")
	for _, info := range infos {
		// Full tokens on purpose: they are the keys for --run and --resume.
		fmt.Fprintf(w, "  %s  %-7s  [%s, %s)  %s",
			info.Token, info.Kind, groupDecimal(info.Start), groupDecimal(info.Stop), info.Status)
		if info.FailValue != "" {
			fmt.Fprintf(w, " at %s", groupDecimal(info.FailValue))
		}
		fmt.Fprintln(w)
		if opts.Verbose {
			fmt.Fprintf(w, "      created %s, %d segments, %d workers\n",
				info.CreatedAt, info.Segments, info.Workers)
		}
	}
	return nil
}

func runJournalSegments(opts *JournalOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	j, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.Run(ctx, opts.Run)
	if errors.Is(err, journal.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.Run))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	segs, err := j.Segments(ctx, opts.Run)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read segments", err)
	}
	infos := make([]SegmentInfo, len(segs))
	for i, seg := range segs {
		infos[i] = segmentInfo(seg)
	}
	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Segments for run %s (%s, %s):\n", truncateToken(run.Token), run.Kind, run.Status)
	for _, info := range infos {
		fmt.Fprintf(w, "  [%d] [%s, %s) %s",
			info.Idx, groupDecimal(info.Start), groupDecimal(info.Stop), info.Status)
		if info.MaxValue != "" {
			fmt.Fprintf(w, ", max %s at %s steps",
				groupDecimal(info.MaxValue), humanPrinter.Sprintf("%d", info.MaxSteps))
		}
		if info.FailValue != "" {
			fmt.Fprintf(w, ", failed at %s", groupDecimal(info.FailValue))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func runJournalRecords(opts *JournalOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	j, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	if _, err := j.Run(ctx, opts.Run); err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.Run))
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	rows, err := j.GlobalRecords(ctx, opts.Run)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read records", err)
	}
	entries := recordRowEntries(rows)
	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintln(w, "No records stored.")
		return nil
	}
	fmt.Fprintf(w, "Records for run %s:\n", truncateToken(opts.Run))
	for _, rec := range entries {
		fmt.Fprintf(w, "  %s: %s steps\n",
			groupDecimal(rec.Value), humanPrinter.Sprintf("%d", rec.Steps))
	}
	return nil
}

func runInfo(run journal.Run) RunInfo {
	info := RunInfo{
		Token:     run.Token,
		Kind:      string(run.Kind),
		Start:     strconv.FormatUint(run.Start, 10),
		Stop:      strconv.FormatUint(run.Stop, 10),
		Workers:   run.Workers,
		Segments:  run.Segments,
		Status:    string(run.Status),
		CreatedAt: run.CreatedAt,
	}
	if run.FailValue != nil {
		info.FailValue = strconv.FormatUint(*run.FailValue, 10)
	}
	return info
}

func segmentInfo(seg journal.Segment) SegmentInfo {
	info := SegmentInfo{
		Idx:    seg.Idx,
		Start:  strconv.FormatUint(seg.Start, 10),
		Stop:   strconv.FormatUint(seg.Stop, 10),
		Status: string(seg.Status),
	}
	if seg.Max != nil {
		info.MaxValue = strconv.FormatUint(seg.Max.Value, 10)
		info.MaxSteps = seg.Max.Steps
	}
	if seg.FailValue != nil {
		info.FailValue = strconv.FormatUint(*seg.FailValue, 10)
	}
	return info
}

// truncateToken shortens a run token for display.
func truncateToken(token string) string {
	if len(token) <= 16 {
		return token
	}
	return token[:8] + "..." + token[len(token)-8:]
}
