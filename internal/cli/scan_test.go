package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mearkatz/beetle-collatz/internal/journal"
)

// runScanCommand executes one scan invocation against a fresh command tree.
func runScanCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewScanCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestScanMissingDatabaseFlag(t *testing.T) {
	_, err := runScanCommand(t, "text", "1", "100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestScanMissingRange(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	_, err := runScanCommand(t, "text", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scan needs <start> <stop>")
}

func TestScanResumeRejectsRange(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	_, err := runScanCommand(t, "text", "--db", dbPath, "--resume", "some-token", "1", "100")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "do not pass a range")
}

func TestScanInvalidMode(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	_, err := runScanCommand(t, "text", "1", "100", "--db", dbPath, "--mode", "hunt")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestScanEmptyRange(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	_, err := runScanCommand(t, "text", "7", "7", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "nothing to scan")
}

func TestScanCheckRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	output, err := runScanCommand(t, "text", "1", "10001", "--db", dbPath, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ check run complete: all 10,000 values in [1, 10,001) fall to 1")
	assert.Contains(t, output, "Run token: ")

	// The journal must hold the finished run.
	_, statErr := os.Stat(dbPath)
	require.NoError(t, statErr)

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.KindCheck, runs[0].Kind)
	assert.Equal(t, journal.StatusDone, runs[0].Status)

	pending, err := j.PendingSegments(context.Background(), runs[0].Token)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestScanRecordsRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	output, err := runScanCommand(t, "text",
		"1", "73", "--db", dbPath, "--mode", "records", "--segments", "3")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ records run complete: 10 records in [1, 73)")
	assert.Contains(t, output, "max 54 at 112 steps")
}

func TestScanRecordsRunJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	output, err := runScanCommand(t, "json",
		"1", "73", "--db", dbPath, "--mode", "records", "--segments", "3")
	require.NoError(t, err)

	var resp struct {
		Status   string     `json:"status"`
		Data     ScanResult `json:"data"`
		RunToken string     `json:"run_token"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunToken)
	assert.Equal(t, "records", resp.Data.Kind)
	assert.Equal(t, "done", resp.Data.Status)
	assert.Equal(t, 3, resp.Data.Segments)
	require.Len(t, resp.Data.Records, 10)
	assert.Equal(t, RecordEntry{Value: "1", Steps: 0}, resp.Data.Records[0])
	assert.Equal(t, RecordEntry{Value: "54", Steps: 112}, resp.Data.Records[9])
	require.NotNil(t, resp.Data.Max)
	assert.Equal(t, RecordEntry{Value: "54", Steps: 112}, *resp.Data.Max)
}

func TestScanResumeFinishedRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	output, err := runScanCommand(t, "json", "1", "101", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		RunToken string `json:"run_token"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.NotEmpty(t, resp.RunToken)

	// Resuming a finished run just re-emits its summary.
	resumed, err := runScanCommand(t, "text", "--db", dbPath, "--resume", resp.RunToken)
	require.NoError(t, err)
	assert.Contains(t, resumed, "✓ check run complete: all 100 values")
	assert.Contains(t, resumed, "Run token: "+resp.RunToken)
}

func TestScanResumeCompletesPendingSegments(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")
	ctx := context.Background()

	// A records run interrupted mid-flight: segment 1 finished with its
	// local records journaled, segments 0 and 2 never started.
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	run := journal.Run{
		Token:    "resume-1",
		Kind:     journal.KindRecords,
		Start:    1,
		Stop:     73,
		Workers:  2,
		Segments: 3,
		Status:   journal.StatusRunning,
	}
	segs := []journal.Segment{
		{Idx: 0, Start: 1, Stop: 25},
		{Idx: 1, Start: 25, Stop: 49},
		{Idx: 2, Start: 49, Stop: 73},
	}
	require.NoError(t, j.CreateRun(ctx, run, segs))
	require.NoError(t, j.WriteSegmentRecords(ctx, "resume-1", 1, []journal.RecordRow{
		{Value: 25, Steps: 23}, {Value: 27, Steps: 111},
	}))
	require.NoError(t, j.MarkSegmentDone(ctx, "resume-1", 1, &journal.SegmentMax{Value: 27, Steps: 111}))
	require.NoError(t, j.Close())

	output, err := runScanCommand(t, "json", "--db", dbPath, "--resume", "resume-1")
	require.NoError(t, err)

	var resp struct {
		Status   string     `json:"status"`
		Data     ScanResult `json:"data"`
		RunToken string     `json:"run_token"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "resume-1", resp.RunToken)
	assert.Equal(t, "done", resp.Data.Status)

	// The resumed run recovers exactly the records a fresh scan finds.
	freshPath := filepath.Join(t.TempDir(), "fresh.db")
	freshOut, err := runScanCommand(t, "json",
		"1", "73", "--db", freshPath, "--mode", "records", "--segments", "3", "--workers", "2")
	require.NoError(t, err)
	var fresh struct {
		Data ScanResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(freshOut), &fresh))
	require.Len(t, resp.Data.Records, 10)
	assert.Equal(t, fresh.Data.Records, resp.Data.Records)
	assert.Equal(t, RecordEntry{Value: "54", Steps: 112}, resp.Data.Records[9])

	// Every segment finished, the two scanned by the resume included.
	j, err = journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()
	stored, err := j.Run(ctx, "resume-1")
	require.NoError(t, err)
	assert.Equal(t, journal.StatusDone, stored.Status)
	all, err := j.Segments(ctx, "resume-1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, seg := range all {
		assert.Equal(t, journal.SegmentDone, seg.Status, "segment %d", i)
	}
	require.NotNil(t, all[0].Max)
	assert.Equal(t, journal.SegmentMax{Value: 18, Steps: 20}, *all[0].Max)
	require.NotNil(t, all[2].Max)
	assert.Equal(t, journal.SegmentMax{Value: 54, Steps: 112}, *all[2].Max)
}

func TestScanResumeRefusesRunWithoutSegments(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")
	ctx := context.Background()

	// A run row without its segment rows cannot be produced by CreateRun;
	// a journal that still holds one must not resume as an instant success.
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, j.InsertRun(ctx, journal.Run{
		Token:    "hollow-1",
		Kind:     journal.KindCheck,
		Start:    1,
		Stop:     1000001,
		Workers:  2,
		Segments: 8,
		Status:   journal.StatusRunning,
	}))
	require.NoError(t, j.Close())

	_, err = runScanCommand(t, "text", "--db", dbPath, "--resume", "hollow-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "has 0 of 8 segments")

	// The refusal must not promote the run to done.
	j, err = journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()
	stored, err := j.Run(ctx, "hollow-1")
	require.NoError(t, err)
	assert.Equal(t, journal.StatusRunning, stored.Status)
}

func TestScanResumeUnknownToken(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	// Create the journal so the open itself succeeds.
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = runScanCommand(t, "text", "--db", dbPath, "--resume", "not-a-token")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found")
}

func TestScanOverflowFailure(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	output, err := runScanCommand(t, "text",
		"18446744073709551613", "18446744073709551615", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "E_SCAN_FAILED")

	// The failure is durable: the run is failed at the overflowing value.
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.StatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].FailValue)
	assert.Equal(t, uint64(18446744073709551613), *runs[0].FailValue)

	// A failed run cannot be resumed; overflow is deterministic.
	_, err = runScanCommand(t, "text", "--db", dbPath, "--resume", runs[0].Token)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "cannot be resumed")
	assert.Contains(t, err.Error(), "18446744073709551613")
}

func TestScanFailureAttributionDeterministic(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	// Every 4-value segment of this range holds one value congruent to
	// 3 mod 4 whose second odd rule overflows uint64, so all 16 segments
	// fail. The run must always attribute its failure to the lowest
	// segment, not to whichever goroutine lost the race.
	output, err := runScanCommand(t, "text",
		"4100000000000000000", "4100000000000000064", "--db", dbPath, "--workers", "4")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "E_SCAN_FAILED")
	assert.Contains(t, output, "4100000000000000003")

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.StatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].FailValue)
	assert.Equal(t, uint64(4100000000000000003), *runs[0].FailValue)

	segs, err := j.Segments(ctx, runs[0].Token)
	require.NoError(t, err)
	require.Len(t, segs, 16)
	assert.Equal(t, journal.SegmentFailed, segs[0].Status)
	require.NotNil(t, segs[0].FailValue)
	assert.Equal(t, uint64(4100000000000000003), *segs[0].FailValue)
}

func TestScanSegmentPartitioning(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")

	_, err := runScanCommand(t, "text", "1", "1001", "--db", dbPath, "--segments", "5")
	require.NoError(t, err)

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 5, runs[0].Segments)

	segs, err := j.Segments(ctx, runs[0].Token)
	require.NoError(t, err)
	require.Len(t, segs, 5)

	// Contiguous cover of [1, 1001), every segment done.
	assert.Equal(t, uint64(1), segs[0].Start)
	assert.Equal(t, uint64(1001), segs[len(segs)-1].Stop)
	for i, seg := range segs {
		assert.Equal(t, journal.SegmentDone, seg.Status, "segment %d", i)
		if i > 0 {
			assert.Equal(t, segs[i-1].Stop, seg.Start, "segment %d", i)
		}
	}
}
