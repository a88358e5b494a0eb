package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// SuiteSnapshot captures a suite result for golden comparison.
// Serialization is deterministic: struct fields marshal in declaration
// order and cases follow suite order.
type SuiteSnapshot struct {
	Suite string       `json:"suite"`
	Pass  bool         `json:"pass"`
	Cases []CaseResult `json:"cases"`
}

// RunWithGolden executes a suite and compares its snapshot against
// testdata/golden/{suite.Name}.golden, regenerated with:
//
//	go test ./internal/harness -update
//
// The returned error covers suite execution only; a snapshot mismatch
// fails t through goldie.
func RunWithGolden(t *testing.T, suite *Suite) error {
	t.Helper()

	runner := &Runner{}
	result, err := runner.Run(context.Background(), suite)
	if err != nil {
		return err
	}

	return AssertGolden(t, suite.Name, result)
}

// AssertGolden snapshots an already-computed result against the golden
// file for name.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := SuiteSnapshot{
		Suite: name,
		Pass:  result.Pass,
		Cases: result.Cases,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	// Fixture files end with a newline.
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
