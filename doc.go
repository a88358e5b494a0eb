// Package collatz implements the 3n+1 arithmetic: single rule applications,
// whole trajectories, and optimized step counters over Go's unsigned integer
// types, with an arbitrary-precision backend for values that outgrow them.
//
// # The function
//
// The Collatz function maps an odd n to 3n+1 and an even n to n/2. Repeated
// application appears to reach 1 from every positive integer; the number of
// applications needed is the step count of n. Zero is excluded by
// construction (see the nonzero package) because the even rule fixes it in
// an endless loop.
//
// # Strategies
//
// Two counting strategies produce identical results. StrategyReference
// applies exactly one rule per iteration and exists as the slow oracle.
// StrategyShortcut, the default, observes that after 3n+1 the result is
// always even, and consumes the entire run of halvings in one
// trailing-zero-count instruction. Every counter here agrees with the
// published step counts for n = 1..72 (OEIS A006577).
//
// # Overflow
//
// 3n+1 can exceed the fixed width T. All arithmetic is checked: counters
// and walkers return an OverflowError naming the operand rather than
// wrapping around or guessing. StepsBig and TrajectoryBig trade speed for
// math/big arithmetic that cannot overflow.
//
// All functions in this package are pure and safe for concurrent use.
package collatz
