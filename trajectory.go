package collatz

import (
	"golang.org/x/exp/constraints"

	"github.com/Mearkatz/beetle-collatz/nonzero"
)

// Trajectory returns every value the Collatz function visits from n down to
// 1, inclusive of both endpoints. The slice always starts with n, always
// ends with 1, and its length is exactly one more than Steps(n).
//
// Trajectories are short but their peaks are not: 27 visits 9232 on its way
// down, so narrow widths overflow long before the step count grows large.
// On overflow the partial walk is discarded and an OverflowError is
// returned.
func Trajectory[T constraints.Unsigned](n nonzero.NonZero[T]) ([]T, error) {
	v := n.Value()
	traj := []T{v}
	for v != 1 {
		if v&1 == 1 {
			if v > oddRuleLimit[T]() {
				return nil, &OverflowError{Op: "3n+1", Value: uint64(v)}
			}
			v = 3*v + 1
		} else {
			v >>= 1
		}
		traj = append(traj, v)
	}
	return traj, nil
}
