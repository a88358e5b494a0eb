package harness

// Suite section names, used to label case results.
const (
	SectionChecks     = "checks"
	SectionStepTables = "step_tables"
	SectionRecords    = "records"
)

// CaseResult records the outcome of a single suite case.
type CaseResult struct {
	Section string `json:"section"`
	Name    string `json:"name"`
	Pass    bool   `json:"pass"`

	// Detail describes the failure. Empty when Pass is true.
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of running a suite.
type Result struct {
	// Suite is the name of the suite that produced this result.
	Suite string `json:"suite"`

	// Pass indicates overall suite success.
	// True if every case passed.
	Pass bool `json:"pass"`

	// Cases contains one entry per executed case, in suite order.
	Cases []CaseResult `json:"cases"`

	// Failures contains the failure messages.
	// Empty if Pass is true.
	Failures []string `json:"failures,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for suite execution.
func NewResult(suite string) *Result {
	return &Result{
		Suite: suite,
		Pass:  true,
		Cases: []CaseResult{},
	}
}

// AddPass records a passed case.
func (r *Result) AddPass(section, name string) {
	r.Cases = append(r.Cases, CaseResult{
		Section: section,
		Name:    name,
		Pass:    true,
	})
}

// AddFailure records a failed case and marks the result as failed.
func (r *Result) AddFailure(section, name string, err error) {
	r.Cases = append(r.Cases, CaseResult{
		Section: section,
		Name:    name,
		Detail:  err.Error(),
	})
	r.Failures = append(r.Failures, err.Error())
	r.Pass = false
}
