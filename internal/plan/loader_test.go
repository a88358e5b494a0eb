package plan

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planNames(plans []Plan) []string {
	names := make([]string, 0, len(plans))
	for _, p := range plans {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func errorCodes(errs []error) []string {
	codes := make([]string, 0, len(errs))
	for _, err := range errs {
		if le, ok := err.(*LoadError); ok {
			codes = append(codes, le.Code)
		}
	}
	return codes
}

func TestLoadPlans_ValidDirectory(t *testing.T) {
	result, errs := LoadPlans("testdata/valid", LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result)

	assert.Equal(t, 2, result.FileCount)
	assert.Equal(t, []string{"frontier", "odd-sieve", "records-72"}, planNames(result.Plans))

	byName := make(map[string]Plan, len(result.Plans))
	for _, p := range result.Plans {
		byName[p.Name] = p
	}

	frontier := byName["frontier"]
	assert.Equal(t, "check", frontier.Kind)
	assert.Equal(t, uint64(1), frontier.Start)
	assert.Equal(t, uint64(1000000), frontier.Stop)
	assert.Equal(t, 8, frontier.Workers)
	assert.Equal(t, "frontier.db", frontier.Journal)
	assert.Equal(t, "extend the verified frontier", frontier.Notes)
	assert.False(t, frontier.OddsOnly)
	assert.Zero(t, frontier.Step)

	records := byName["records-72"]
	assert.Equal(t, "records", records.Kind)
	assert.Equal(t, uint64(1), records.Start)
	assert.Equal(t, uint64(73), records.Stop)
	assert.Equal(t, 0, records.Workers, "workers should default to 0")
	assert.False(t, records.OddsOnly, "odds_only should default to false")
	assert.Empty(t, records.Journal)

	sieve := byName["odd-sieve"]
	assert.True(t, sieve.OddsOnly)
	assert.Equal(t, uint64(2), sieve.Step)
	assert.Equal(t, uint64(3), sieve.Start)
}

func TestLoadPlans_MissingDirectory(t *testing.T) {
	result, errs := LoadPlans("testdata/does-not-exist", LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)

	le, ok := errs[0].(*LoadError)
	require.True(t, ok, "expected *LoadError, got %T", errs[0])
	assert.Equal(t, ErrCodeNotFound, le.Code)
	assert.Contains(t, le.Message, "testdata/does-not-exist")
}

func TestLoadPlans_EmptyDirectory(t *testing.T) {
	result, errs := LoadPlans(t.TempDir(), LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)

	le, ok := errs[0].(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNoFiles, le.Code)
}

func TestLoadPlans_SchemaViolation(t *testing.T) {
	result, errs := LoadPlans("testdata/invalid_bounds", LoadModeFailFast)
	assert.Nil(t, result)
	require.NotEmpty(t, errs)

	le, ok := errs[0].(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeSchema, le.Code)
	assert.Contains(t, le.Message, "stop")
}

func TestLoadPlans_OddsValidation_CollectAll(t *testing.T) {
	result, errs := LoadPlans("testdata/invalid_odds", LoadModeCollectAll)
	require.NotNil(t, result, "extraction errors still return the partial result")
	assert.Empty(t, result.Plans)
	require.Len(t, errs, 2)

	codes := errorCodes(errs)
	assert.Contains(t, codes, ErrCodeOddsStart, "even start with odds_only should be reported")
	assert.Contains(t, codes, ErrCodeOddsStep, "odd step with odds_only should be reported")
}

func TestLoadPlans_OddsValidation_FailFast(t *testing.T) {
	result, errs := LoadPlans("testdata/invalid_odds", LoadModeFailFast)
	require.NotNil(t, result)
	assert.Empty(t, result.Plans)
	require.Len(t, errs, 1)

	le, ok := errs[0].(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeOddsStart, le.Code, "start is validated before step")
	assert.Contains(t, le.Message, "sieve")
}

func TestFindCUEFiles(t *testing.T) {
	files, err := FindCUEFiles("testdata/valid")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = FindCUEFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr int
	}{
		{
			name:    "plain check plan",
			plan:    Plan{Name: "p", Kind: "check", Start: 1, Stop: 100},
			wantErr: 0,
		},
		{
			name:    "odds plan",
			plan:    Plan{Name: "p", Kind: "records", Start: 3, Stop: 99, OddsOnly: true, Step: 4},
			wantErr: 0,
		},
		{
			name:    "odds plan with even start",
			plan:    Plan{Name: "p", Kind: "check", Start: 2, Stop: 99, OddsOnly: true, Step: 2},
			wantErr: 1,
		},
		{
			name:    "odds plan without step",
			plan:    Plan{Name: "p", Kind: "check", Start: 3, Stop: 99, OddsOnly: true},
			wantErr: 1,
		},
		{
			name:    "odds plan with odd step",
			plan:    Plan{Name: "p", Kind: "check", Start: 3, Stop: 99, OddsOnly: true, Step: 3},
			wantErr: 1,
		},
		{
			name:    "step without odds_only",
			plan:    Plan{Name: "p", Kind: "check", Start: 1, Stop: 99, Step: 2},
			wantErr: 1,
		},
		{
			name:    "even start and odd step",
			plan:    Plan{Name: "p", Kind: "check", Start: 2, Stop: 99, OddsOnly: true, Step: 3},
			wantErr: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.plan.Validate()
			assert.Len(t, errs, tt.wantErr)
		})
	}
}
