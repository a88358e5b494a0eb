// Package harness runs conformance suites against the step counters and
// range scanners.
//
// A suite is a YAML file declaring ranges together with the outcomes the
// published tables promise for them: convergence checks, per-value step
// counts, and step-count records. The runner executes each case against the
// public API and aggregates pass/fail; suite results can be snapshotted to
// golden files for regression comparison.
//
// # Suite format
//
//	name: suite_name
//	description: "What this suite pins down"
//	checks:
//	  - name: first_fifty
//	    start: 1
//	    stop: 51
//	  - name: odd_stride
//	    start: 1
//	    stop: 51
//	    odds_only: true
//	    step: 2
//	step_tables:
//	  - name: opening
//	    start: 1
//	    expect: [0, 1, 7, 2]
//	records:
//	  - name: first_decade
//	    start: 1
//	    stop: 10
//	    max: { value: 9, steps: 19 }
//	    expect:
//	      - { value: 1, steps: 0 }
//	      - { value: 2, steps: 1 }
//
// A step table covers the half-open range starting at start whose length is
// the length of expect. Records cases may pin the maximum, the full record
// sequence, or both.
//
// # Determinism
//
// Every case is a pure computation over its declared range, so a suite
// produces the same result on every run. Golden snapshots serialize results
// as indented JSON with fields in declaration order; regenerate them with:
//
//	go test ./internal/harness -update
package harness
