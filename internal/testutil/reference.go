// Package testutil provides shared reference fixtures for tests.
//
// The fixtures are transcriptions of published Collatz data, not outputs of
// this module, so every package can check itself against numbers that were
// not produced by the code under test.
package testutil

// ReferenceSteps holds the published Collatz step counts for n = 1 through
// 72 (OEIS A006577). ReferenceSteps[i] is the count for n = i+1.
var ReferenceSteps = [72]uint64{
	0, 1, 7, 2, 5, 8, 16, 3, 19, 6,
	14, 9, 9, 17, 17, 4, 12, 20, 20, 7,
	7, 15, 15, 10, 23, 10, 111, 18, 18, 18,
	106, 5, 26, 13, 13, 21, 21, 21, 34, 8,
	109, 8, 29, 16, 16, 16, 104, 11, 24, 24,
	24, 11, 11, 112, 112, 19, 32, 19, 32, 19,
	19, 107, 107, 6, 27, 27, 27, 14, 14, 14,
	102, 22,
}

// StepsOf returns the published step count for n, which must lie in 1..72.
func StepsOf(n uint64) uint64 {
	return ReferenceSteps[n-1]
}

// RecordPair is a (value, steps) expectation used by record-scan tests.
type RecordPair struct {
	Value uint64
	Steps uint64
}

// ReferenceRecords lists every step-count record in [1, 73): the values
// whose counts strictly exceed the count of everything scanned before them.
// The first value of a scan is always a record. 55 ties 54 at 112 steps and
// is deliberately absent, as is 19 (ties 18) and 31/41/47/71 (long counts
// that still fall short of 27's 111).
var ReferenceRecords = []RecordPair{
	{Value: 1, Steps: 0},
	{Value: 2, Steps: 1},
	{Value: 3, Steps: 7},
	{Value: 6, Steps: 8},
	{Value: 7, Steps: 16},
	{Value: 9, Steps: 19},
	{Value: 18, Steps: 20},
	{Value: 25, Steps: 23},
	{Value: 27, Steps: 111},
	{Value: 54, Steps: 112},
}
