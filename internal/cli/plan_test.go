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

// writePlans drops one plan file into a fresh directory and returns the
// directory path.
func writePlans(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plans.cue"), []byte(content), 0644))
	return dir
}

func runPlanCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewPlanCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestPlanValidDirectory(t *testing.T) {
	dir := writePlans(t, `
package plans

plan: sweep: {
	kind:    "check"
	start:   1
	stop:    1001
	workers: 2
}

plan: "records-72": {
	kind:  "records"
	start: 1
	stop:  73
}
`)

	output, err := runPlanCommand(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ 2 plan(s) valid")
	assert.Contains(t, output, "records-72")
	assert.Contains(t, output, "records [1, 73)")
	assert.Contains(t, output, "check [1, 1,001), 2 workers")
}

func TestPlanValidDirectoryJSON(t *testing.T) {
	dir := writePlans(t, `
package plans

plan: sweep: {
	kind:  "check"
	start: 1
	stop:  1001
}
`)

	output, err := runPlanCommand(t, "json", dir)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Valid bool `json:"valid"`
			Plans []struct {
				Name  string `json:"name"`
				Kind  string `json:"kind"`
				Start uint64 `json:"start"`
				Stop  uint64 `json:"stop"`
			} `json:"plans"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Plans, 1)
	assert.Equal(t, "sweep", resp.Data.Plans[0].Name)
	assert.Equal(t, "check", resp.Data.Plans[0].Kind)
	assert.Equal(t, uint64(1001), resp.Data.Plans[0].Stop)
}

func TestPlanNonExistentDirectory(t *testing.T) {
	output, err := runPlanCommand(t, "text", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")
	assert.Contains(t, output, "E005")
}

func TestPlanEmptyDirectory(t *testing.T) {
	output, err := runPlanCommand(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no CUE files found")
	assert.Contains(t, output, "E003")
}

func TestPlanInvalidOdds(t *testing.T) {
	dir := writePlans(t, `
package plans

plan: sieve: {
	kind:      "check"
	start:     2
	stop:      100
	odds_only: true
	step:      3
}
`)

	output, err := runPlanCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed")

	// Both parity violations are collected, not just the first.
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "E101")
	assert.Contains(t, output, "must start odd")
	assert.Contains(t, output, "E102")
	assert.Contains(t, output, "must be even")
}

func TestPlanSchemaViolation(t *testing.T) {
	dir := writePlans(t, `
package plans

plan: backwards: {
	kind:  "check"
	start: 100
	stop:  10
}
`)

	output, err := runPlanCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "E007")
}

func TestPlanInvalidJSON(t *testing.T) {
	dir := writePlans(t, `
package plans

plan: sieve: {
	kind:      "check"
	start:     2
	stop:      100
	odds_only: true
	step:      2
}
`)

	output, err := runPlanCommand(t, "json", dir)
	require.Error(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Valid  bool        `json:"valid"`
			Errors []PlanIssue `json:"errors"`
		} `json:"data"`
		Error *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, "E101", resp.Data.Errors[0].Code)
	require.NotNil(t, resp.Error)
}

func TestPlanRun(t *testing.T) {
	dir := writePlans(t, `
package plans

plan: sweep: {
	kind:    "check"
	start:   1
	stop:    1001
	workers: 2
}

plan: "records-72": {
	kind:  "records"
	start: 1
	stop:  73
}
`)

	output, err := runPlanCommand(t, "text", dir, "--run")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ records-72 (max 54 at 112 steps)")
	assert.Contains(t, output, "✓ sweep")
	assert.Contains(t, output, "Plan Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, output, "✓ All plans passed")
}

func TestPlanRunOdds(t *testing.T) {
	dir := writePlans(t, `
package plans

plan: "odd-check": {
	kind:      "check"
	start:     1
	stop:      10001
	odds_only: true
	step:      2
}

plan: "odd-records": {
	kind:      "records"
	start:     1
	stop:      73
	odds_only: true
	step:      2
}
`)

	output, err := runPlanCommand(t, "text", dir, "--run")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ odd-check")
	// The odds-only maximum differs from the full-range one: 54 is even.
	assert.Contains(t, output, "✓ odd-records (max 55 at 112 steps)")
}

func TestPlanRunJournaled(t *testing.T) {
	dir := writePlans(t, `
package plans

plan: journaled: {
	kind:    "records"
	start:   1
	stop:    73
	workers: 2
	journal: "scans.db"
}
`)

	output, err := runPlanCommand(t, "text", dir, "--run")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ journaled (max 54 at 112 steps) run ")

	// The journal lands next to the plans and holds the finished run.
	j, err := journal.Open(filepath.Join(dir, "scans.db"))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.KindRecords, runs[0].Kind)
	assert.Equal(t, journal.StatusDone, runs[0].Status)

	rows, err := j.GlobalRecords(ctx, runs[0].Token)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	assert.Equal(t, journal.RecordRow{Value: 54, Steps: 112}, rows[len(rows)-1])
}

func TestPlanRunOddsJournaledRejected(t *testing.T) {
	dir := writePlans(t, `
package plans

plan: "odd-journal": {
	kind:      "check"
	start:     1
	stop:      101
	odds_only: true
	step:      2
	journal:   "odd.db"
}
`)

	output, err := runPlanCommand(t, "text", dir, "--run")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ odd-journal")
	assert.Contains(t, output, "odds-only plans cannot be journaled")
	assert.Contains(t, output, "Plan Summary: 0 passed, 1 failed, 1 total")
}

func TestPlanRunOverflowFailure(t *testing.T) {
	dir := writePlans(t, `
package plans

plan: doomed: {
	kind:  "check"
	start: 18446744073709551613
	stop:  18446744073709551615
}

plan: fine: {
	kind:  "check"
	start: 1
	stop:  101
}
`)

	output, err := runPlanCommand(t, "text", dir, "--run")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 plan(s) failed")

	// The failing plan does not stop the one after it.
	assert.Contains(t, output, "✗ doomed")
	assert.Contains(t, output, "✓ fine")
	assert.Contains(t, output, "Plan Summary: 1 passed, 1 failed, 2 total")
}

func TestPlanRunJSON(t *testing.T) {
	dir := writePlans(t, `
package plans

plan: "records-72": {
	kind:  "records"
	start: 1
	stop:  73
}
`)

	output, err := runPlanCommand(t, "json", dir, "--run")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   PlanRunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 0, resp.Data.Failed)
	require.Len(t, resp.Data.Plans, 1)

	outcome := resp.Data.Plans[0]
	assert.Equal(t, "records-72", outcome.Name)
	assert.True(t, outcome.Pass)
	require.NotNil(t, outcome.Max)
	assert.Equal(t, RecordEntry{Value: "54", Steps: 112}, *outcome.Max)
}
