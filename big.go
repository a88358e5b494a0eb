package collatz

import "math/big"

var (
	bigOne   = big.NewInt(1)
	bigThree = big.NewInt(3)
)

// StepsBig counts Collatz steps with arbitrary-precision arithmetic. It
// accepts any positive integer regardless of magnitude and cannot overflow;
// nil, zero and negative inputs fail with ErrNonPositive. The input is not
// modified.
func StepsBig(n *big.Int) (uint64, error) {
	if n == nil || n.Sign() < 1 {
		return 0, ErrNonPositive
	}
	v := new(big.Int).Set(n)
	var steps uint64
	if v.Bit(0) == 0 {
		tz := v.TrailingZeroBits()
		v.Rsh(v, tz)
		steps = uint64(tz)
	}
	for v.Cmp(bigOne) != 0 {
		v.Mul(v, bigThree)
		v.Add(v, bigOne)
		tz := v.TrailingZeroBits()
		v.Rsh(v, tz)
		steps += uint64(tz) + 1
	}
	return steps, nil
}

// TrajectoryBig returns every value the Collatz function visits from n down
// to 1. Each element is freshly allocated; the input is not modified. Like
// Trajectory, the result starts with n, ends with 1, and has length
// StepsBig(n)+1.
func TrajectoryBig(n *big.Int) ([]*big.Int, error) {
	if n == nil || n.Sign() < 1 {
		return nil, ErrNonPositive
	}
	v := new(big.Int).Set(n)
	traj := []*big.Int{new(big.Int).Set(v)}
	for v.Cmp(bigOne) != 0 {
		if v.Bit(0) == 1 {
			v.Mul(v, bigThree)
			v.Add(v, bigOne)
		} else {
			v.Rsh(v, 1)
		}
		traj = append(traj, new(big.Int).Set(v))
	}
	return traj, nil
}
