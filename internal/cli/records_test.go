package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordsMax(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRecordsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"1", "73"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Max record in [1, 73): 54 takes 112 steps")
}

func TestRecordsMaxParallel(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRecordsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"1", "73", "--workers", "4"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Max record in [1, 73): 54 takes 112 steps")
}

func TestRecordsFirstDecade(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRecordsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"1", "10"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Max record in [1, 10): 9 takes 19 steps")
}

func TestRecordsAll(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRecordsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"1", "10", "--all"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Step-count records in [1, 10):")
	assert.Contains(t, output, "  1: 0 steps")
	assert.Contains(t, output, "  2: 1 steps")
	assert.Contains(t, output, "  3: 7 steps")
	assert.Contains(t, output, "  6: 8 steps")
	assert.Contains(t, output, "  7: 16 steps")
	assert.Contains(t, output, "  9: 19 steps")
	// 4, 5 and 8 set no records.
	assert.NotContains(t, output, "  4: ")
	assert.NotContains(t, output, "  5: ")
	assert.NotContains(t, output, "  8: ")
}

func TestRecordsAllJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRecordsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"1", "73", "--all"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   RecordsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Records, 10)
	assert.Equal(t, RecordEntry{Value: "1", Steps: 0}, resp.Data.Records[0])
	assert.Equal(t, RecordEntry{Value: "27", Steps: 111}, resp.Data.Records[8])
	assert.Equal(t, RecordEntry{Value: "54", Steps: 112}, resp.Data.Records[9])
}

func TestRecordsMaxJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRecordsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"1", "10"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   RecordsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Data.Max)
	assert.Equal(t, RecordEntry{Value: "9", Steps: 19}, *resp.Data.Max)
	assert.Empty(t, resp.Data.Records)
}

func TestRecordsEmptyRange(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRecordsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"5", "5"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "nothing to scan")
}

func TestRecordsReversedRange(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRecordsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"73", "1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid range")
}

func TestRecordsOverflow(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRecordsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"18446744073709551613", "18446744073709551615"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "E_RECORDS_FAILED")
}
