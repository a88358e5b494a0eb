// Package scan verifies Collatz convergence and tracks step-count records
// over ranges of values.
//
// # Scans
//
// CheckRange confirms that every value in a range eventually falls below
// itself, the classical way of extending a verified frontier: if everything
// smaller already reaches 1, falling below yourself is reaching 1.
// CheckRangeOdds does the same over an odd arithmetic progression, skipping
// the even values that fall in a single halving. StepsSeq exposes the
// per-value step counts of a range as a lazy sequence.
//
// # Records
//
// A value sets a record when its step count strictly exceeds the count of
// every value scanned before it; the first value of a scan is a record by
// vacuous truth. Records returns all of them, MaxRecord only the last. Ties
// never displace a record, so the earliest value wins.
//
// # Determinism and failure
//
// The parallel variants split a range into contiguous segments and reduce
// the per-segment results in ascending order with the same strictly-greater
// comparison, so partitioning and scheduling never change a result. A scan
// aborts on the first value whose arithmetic leaves the fixed width,
// wrapping the failure in a ValueError naming that value; under parallel
// execution the named value is the one from the lowest failing segment.
// Range-scale operations poll their context and return early when it is
// canceled.
package scan
