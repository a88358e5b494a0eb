package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Suite is one conformance suite.
// A suite groups cases by what they pin down: convergence of whole ranges,
// exact step counts, and step-count records.
type Suite struct {
	// Name uniquely identifies this suite. Golden snapshots are stored
	// under this name.
	Name string `yaml:"name"`

	// Description explains what this suite validates.
	Description string `yaml:"description"`

	// Checks lists ranges whose every trajectory must fall below its start.
	Checks []CheckCase `yaml:"checks,omitempty"`

	// StepTables lists ranges with the exact step count of every element.
	StepTables []StepTableCase `yaml:"step_tables,omitempty"`

	// Records lists ranges with their expected step-count records.
	Records []RecordsCase `yaml:"records,omitempty"`
}

// CheckCase asserts that every value in [start, stop) converges.
type CheckCase struct {
	Name  string `yaml:"name"`
	Start uint64 `yaml:"start"`
	Stop  uint64 `yaml:"stop"`

	// OddsOnly restricts the check to the odd progression start, start+step,
	// start+2*step, ... below stop. Requires an odd start and an even step.
	OddsOnly bool   `yaml:"odds_only,omitempty"`
	Step     uint64 `yaml:"step,omitempty"`

	// Workers splits the range across goroutines when greater than 1.
	// Ignored for odds-only cases.
	Workers int `yaml:"workers,omitempty"`
}

// StepTableCase asserts the step count of every value in the half-open
// range starting at start. The range length is the length of expect.
type StepTableCase struct {
	Name   string   `yaml:"name"`
	Start  uint64   `yaml:"start"`
	Expect []uint64 `yaml:"expect"`
}

// RecordsCase asserts record results over [start, stop). At least one of
// max and expect must be set; both may be.
type RecordsCase struct {
	Name  string `yaml:"name"`
	Start uint64 `yaml:"start"`
	Stop  uint64 `yaml:"stop"`

	// Max is the expected earliest maximum-steps pair, if set.
	Max *RecordExpect `yaml:"max,omitempty"`

	// Expect is the expected full record sequence, if set.
	Expect []RecordExpect `yaml:"expect,omitempty"`
}

// RecordExpect is one expected (value, steps) pair.
type RecordExpect struct {
	Value uint64 `yaml:"value" json:"value"`
	Steps uint64 `yaml:"steps" json:"steps"`
}

// LoadSuite reads and parses a suite YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	// Strict field validation catches typos like "step_table:" vs "step_tables:".
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}

	return &suite, nil
}

// LoadSuiteDir loads every .yaml and .yml file in dir, in filename order.
func LoadSuiteDir(dir string) ([]*Suite, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no suite files found in %s", dir)
	}

	suites := make([]*Suite, 0, len(paths))
	for _, path := range paths {
		suite, err := LoadSuite(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		suites = append(suites, suite)
	}
	return suites, nil
}

// validateSuite checks that required fields are present and valid.
func validateSuite(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Checks)+len(s.StepTables)+len(s.Records) == 0 {
		return fmt.Errorf("at least one case is required")
	}

	for i, c := range s.Checks {
		if c.Name == "" {
			return fmt.Errorf("checks[%d]: name is required", i)
		}
		if c.Start == 0 {
			return fmt.Errorf("checks[%d]: start must be at least 1", i)
		}
		if c.Stop < c.Start {
			return fmt.Errorf("checks[%d]: stop must not be less than start", i)
		}
		if c.OddsOnly {
			if c.Start%2 == 0 {
				return fmt.Errorf("checks[%d]: odds-only start must be odd, got %d", i, c.Start)
			}
			if c.Step == 0 || c.Step%2 != 0 {
				return fmt.Errorf("checks[%d]: odds-only step must be even and positive, got %d", i, c.Step)
			}
		} else if c.Step != 0 {
			return fmt.Errorf("checks[%d]: step is only meaningful with odds_only", i)
		}
		if c.Workers < 0 {
			return fmt.Errorf("checks[%d]: workers must be non-negative", i)
		}
	}

	for i, st := range s.StepTables {
		if st.Name == "" {
			return fmt.Errorf("step_tables[%d]: name is required", i)
		}
		if st.Start == 0 {
			return fmt.Errorf("step_tables[%d]: start must be at least 1", i)
		}
		if len(st.Expect) == 0 {
			return fmt.Errorf("step_tables[%d]: expect list is required and must be non-empty", i)
		}
		if uint64(len(st.Expect)) > math.MaxUint64-st.Start {
			return fmt.Errorf("step_tables[%d]: range end overflows uint64", i)
		}
	}

	for i, rc := range s.Records {
		if rc.Name == "" {
			return fmt.Errorf("records[%d]: name is required", i)
		}
		if rc.Start == 0 {
			return fmt.Errorf("records[%d]: start must be at least 1", i)
		}
		if rc.Stop <= rc.Start {
			return fmt.Errorf("records[%d]: stop must be greater than start", i)
		}
		if rc.Max == nil && len(rc.Expect) == 0 {
			return fmt.Errorf("records[%d]: max or expect is required", i)
		}
	}

	return nil
}
