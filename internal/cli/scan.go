package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Mearkatz/beetle-collatz/internal/journal"
	"github.com/Mearkatz/beetle-collatz/nonzero"
	"github.com/Mearkatz/beetle-collatz/scan"
)

// newRunToken mints tokens for journaled runs started by scan and plan.
var newRunToken journal.TokenGenerator = journal.UUIDv7Generator{}

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	Database string
	Mode     string // "check" | "records"
	Segments int
	Workers  int
	Resume   string
}

// ScanResult summarizes one journaled run for output.
type ScanResult struct {
	Kind     string        `json:"kind"`
	Start    string        `json:"start"`
	Stop     string        `json:"stop"`
	Segments int           `json:"segments"`
	Workers  int           `json:"workers"`
	Status   string        `json:"status"`
	Max      *RecordEntry  `json:"max,omitempty"`
	Records  []RecordEntry `json:"records,omitempty"`
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan [<start> <stop>]",
		Short: "Run a journaled segmented scan",
		Long: `Run a range scan whose progress is journaled in SQLite.

The range is cut into contiguous segments scanned by a pool of workers,
and every finished segment is recorded before its result counts, so an
interrupted scan continues with --resume from the segments that never
finished. Check runs verify convergence; records runs additionally store
every step-count record of the range.

Exit codes:
  0 - Scan finished
  1 - Scan failed (overflow) or was interrupted
  2 - Command error (bad arguments, unknown run token)

Examples:
  collatz scan 1 1000000 --db scans.db
  collatz scan 1 1000000 --db scans.db --mode records --workers 8
  collatz scan --db scans.db --resume <token>`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Mode, "mode", "check", "scan mode (check|records)")
	cmd.Flags().IntVar(&opts.Segments, "segments", 0, "segments to cut the range into (0 = 4 per worker)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "parallel workers")
	cmd.Flags().StringVar(&opts.Resume, "resume", "", "resume the run with this token")

	return cmd
}

func runScan(opts *ScanOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Resume != "" && len(args) > 0 {
		return NewExitError(ExitCommandError, "--resume continues an existing run; do not pass a range")
	}
	if opts.Resume == "" && len(args) != 2 {
		return NewExitError(ExitCommandError, "scan needs <start> <stop>, or --resume with a token")
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			slog.Error("error closing journal", "error", closeErr)
		}
	}()

	var run *journal.Run
	if opts.Resume != "" {
		run, err = resumeRun(ctx, opts, j, cmd)
	} else {
		run, err = createRun(ctx, opts, j, args)
	}
	if err != nil {
		return err
	}
	if run.Status == journal.StatusDone {
		// Nothing pending; re-emit the stored summary.
		return outputScanSummary(ctx, formatter, j, run)
	}

	if err := executeRun(ctx, j, run); err != nil {
		return outputScanFailure(ctx, formatter, j, run, err)
	}

	if err := j.FinishRun(ctx, run.Token, journal.StatusDone, nil); err != nil {
		return WrapExitError(ExitCommandError, "failed to finish run", err)
	}
	run.Status = journal.StatusDone
	return outputScanSummary(ctx, formatter, j, run)
}

// createRun journals a fresh run over the requested range.
func createRun(ctx context.Context, opts *ScanOptions, j *journal.Journal, args []string) (*journal.Run, error) {
	kind := journal.RunKind(opts.Mode)
	if kind != journal.KindCheck && kind != journal.KindRecords {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid mode %q: must be check or records", opts.Mode))
	}
	r, err := parseRange(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if r.Empty() {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("nothing to scan in %s", r))
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	segments := opts.Segments
	if segments < 1 {
		segments = workers * 4
	}
	token := newRunToken.Generate()
	return startRun(ctx, j, token, kind, r, workers, segments)
}

// resumeRun reloads a journaled run so its pending segments can be
// rescanned. Failed runs stay failed; overflow is deterministic, so
// retrying the same segment cannot end differently. A run whose stored
// segments do not match its declared partitioning is refused rather than
// mistaken for complete.
func resumeRun(ctx context.Context, opts *ScanOptions, j *journal.Journal, cmd *cobra.Command) (*journal.Run, error) {
	run, err := j.Run(ctx, opts.Resume)
	if errors.Is(err, journal.ErrNotFound) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.Resume))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read run", err)
	}
	if run.Status == journal.StatusFailed {
		value := "an unrecorded value"
		if run.FailValue != nil {
			value = strconv.FormatUint(*run.FailValue, 10)
		}
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("run %s failed at %s and cannot be resumed", truncateToken(run.Token), value))
	}
	segs, err := j.Segments(ctx, run.Token)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read segments", err)
	}
	if len(segs) != run.Segments {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("run %s has %d of %d segments journaled and cannot be resumed",
				truncateToken(run.Token), len(segs), run.Segments))
	}
	if cmd.Flags().Changed("workers") {
		run.Workers = opts.Workers
	}
	return run, nil
}

// startRun journals a new run and its segment partitioning in a single
// transaction before any computation begins: a crash at any later point
// leaves a resumable record, and a crash during creation leaves nothing,
// never a run row without its segments.
func startRun(ctx context.Context, j *journal.Journal, token string, kind journal.RunKind, r nonzero.Range[uint64], workers, segments int) (*journal.Run, error) {
	parts := scan.Split(r, segments)
	run := journal.Run{
		Token:    token,
		Kind:     kind,
		Start:    r.Start(),
		Stop:     r.Stop(),
		Workers:  workers,
		Segments: len(parts),
		Status:   journal.StatusRunning,
	}
	segs := make([]journal.Segment, len(parts))
	for i, part := range parts {
		segs[i] = journal.Segment{
			RunToken: token,
			Idx:      i,
			Start:    part.Start(),
			Stop:     part.Stop(),
			Status:   journal.SegmentPending,
		}
	}
	if err := j.CreateRun(ctx, run, segs); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to journal run", err)
	}
	return &run, nil
}

// executeRun scans every pending segment of run, persisting per-segment
// outcomes as they land. Cancellation leaves untouched segments pending so
// a later --resume picks them up. Per-segment failures reduce with
// scan.FirstError, so rerunning the same partitioning attributes failure
// to the same segment.
func executeRun(ctx context.Context, j *journal.Journal, run *journal.Run) error {
	pending, err := j.PendingSegments(ctx, run.Token)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read pending segments", err)
	}
	if len(pending) == 0 {
		return nil
	}
	workers := run.Workers
	if workers < 1 {
		workers = 1
	}
	slog.Info("scan starting",
		"run", truncateToken(run.Token), "kind", run.Kind,
		"pending", len(pending), "workers", workers)

	errs := make([]error, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seg := range pending {
		g.Go(func() error {
			errs[i] = scanSegment(gctx, j, run.Kind, seg)
			return errs[i]
		})
	}
	_ = g.Wait()
	return scan.FirstError(errs)
}

// scanSegment runs one segment to completion and records the outcome. A
// canceled segment records nothing and stays pending.
func scanSegment(ctx context.Context, j *journal.Journal, kind journal.RunKind, seg journal.Segment) error {
	r, err := segmentRange(seg)
	if err != nil {
		return err
	}
	slog.Debug("segment starting", "segment", seg.Idx, "range", r.String())

	var max *journal.SegmentMax
	switch kind {
	case journal.KindCheck:
		err = scan.CheckRange(ctx, r)
	case journal.KindRecords:
		var recs []scan.Record[uint64]
		recs, err = scan.Records(ctx, r)
		if err == nil {
			rows := make([]journal.RecordRow, len(recs))
			for i, rec := range recs {
				rows[i] = journal.RecordRow{Value: rec.Value, Steps: rec.Steps}
			}
			if err := j.WriteSegmentRecords(ctx, seg.RunToken, seg.Idx, rows); err != nil {
				return fmt.Errorf("segment %d: %w", seg.Idx, err)
			}
			// Records are ascending, so the segment max is the last one.
			last := recs[len(recs)-1]
			max = &journal.SegmentMax{Value: last.Value, Steps: last.Steps}
		}
	default:
		return fmt.Errorf("segment %d: unknown run kind %q", seg.Idx, kind)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if value, ok := scan.FailedValue(err); ok {
			if markErr := j.MarkSegmentFailed(ctx, seg.RunToken, seg.Idx, value); markErr != nil {
				slog.Error("failed to record segment failure", "segment", seg.Idx, "error", markErr)
			}
		}
		return err
	}
	if err := j.MarkSegmentDone(ctx, seg.RunToken, seg.Idx, max); err != nil {
		return fmt.Errorf("segment %d: %w", seg.Idx, err)
	}
	slog.Debug("segment done", "segment", seg.Idx)
	return nil
}

// segmentRange rebuilds the range a journaled segment covers.
func segmentRange(seg journal.Segment) (nonzero.Range[uint64], error) {
	var zero nonzero.Range[uint64]
	start, err := nonzero.New(seg.Start)
	if err != nil {
		return zero, fmt.Errorf("segment %d: %w", seg.Idx, err)
	}
	stop, err := nonzero.New(seg.Stop)
	if err != nil {
		return zero, fmt.Errorf("segment %d: %w", seg.Idx, err)
	}
	r, err := nonzero.NewRange(start, stop)
	if err != nil {
		return zero, fmt.Errorf("segment %d: %w", seg.Idx, err)
	}
	return r, nil
}

func outputScanFailure(ctx context.Context, f *OutputFormatter, j *journal.Journal, run *journal.Run, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Untouched segments are still pending; the run stays resumable.
		return failWith(f, ExitFailure, "E_SCAN_FAILED",
			fmt.Sprintf("scan interrupted; resume with --resume %s", run.Token), nil)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	var failValue *uint64
	var details interface{}
	if value, ok := scan.FailedValue(err); ok {
		failValue = &value
		details = map[string]string{"value": strconv.FormatUint(value, 10)}
	}
	if finishErr := j.FinishRun(ctx, run.Token, journal.StatusFailed, failValue); finishErr != nil {
		slog.Error("failed to record run failure", "run", truncateToken(run.Token), "error", finishErr)
	}
	return failWith(f, ExitFailure, "E_SCAN_FAILED", err.Error(), details)
}

func outputScanSummary(ctx context.Context, f *OutputFormatter, j *journal.Journal, run *journal.Run) error {
	result := ScanResult{
		Kind:     string(run.Kind),
		Start:    strconv.FormatUint(run.Start, 10),
		Stop:     strconv.FormatUint(run.Stop, 10),
		Segments: run.Segments,
		Workers:  run.Workers,
		Status:   string(run.Status),
	}
	if run.Kind == journal.KindRecords {
		rows, err := j.GlobalRecords(ctx, run.Token)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read records", err)
		}
		result.Records = recordRowEntries(rows)
		if len(result.Records) > 0 {
			result.Max = &result.Records[len(result.Records)-1]
		}
	}
	if f.Format == "json" {
		return writeResponse(f.Writer, CLIResponse{Status: "ok", Data: result, RunToken: run.Token})
	}

	w := f.Writer
	count := run.Stop - run.Start
	switch run.Kind {
	case journal.KindCheck:
		humanPrinter.Fprintf(w, "✓ check run complete: all %d values in [%s, %s) fall to 1\n",
			count, groupDecimal(result.Start), groupDecimal(result.Stop))
	case journal.KindRecords:
		humanPrinter.Fprintf(w, "✓ records run complete: %d records in [%s, %s)\n",
			len(result.Records), groupDecimal(result.Start), groupDecimal(result.Stop))
		if result.Max != nil {
			fmt.Fprintf(w, "  max %s at %s steps\n",
				groupDecimal(result.Max.Value), humanPrinter.Sprintf("%d", result.Max.Steps))
		}
	}
	fmt.Fprintf(w, "Run token: %s\n", run.Token)
	return nil
}

func recordRowEntries(rows []journal.RecordRow) []RecordEntry {
	entries := make([]RecordEntry, len(rows))
	for i, row := range rows {
		entries[i] = RecordEntry{Value: strconv.FormatUint(row.Value, 10), Steps: row.Steps}
	}
	return entries
}
