package math

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
)

var (
	ErrNothingToApportion = errors.New("cannot apportion a non-zero total into zero parts")
	ErrNegativeWeight     = errors.New("apportion weight can not be negative")
	ErrZeroWeights        = errors.New("cannot apportion a non-zero total by all-zero weights")
)

// Apportion splits total (in minor units) into len(weights) integer parts
// proportional to weights using the largest remainder (Hamilton) method:
//
//	share_i = total * w_i / Σw            (exact, big.Rat)
//	part_i  = floor(share_i)
//	leftover = total - Σpart_i            (always < len(weights))
//
// The leftover units go one each to the parts with the largest fractional
// remainder; equal remainders are resolved by input order. Σpart_i == total.
// A negative total is apportioned by magnitude and negated.
func Apportion(total int64, weights []*big.Rat) ([]int64, error) {
	if len(weights) == 0 {
		if total != 0 {
			return nil, fmt.Errorf("%w: total=%d", ErrNothingToApportion, total)
		}
		return []int64{}, nil
	}

	weightSum := new(big.Rat)
	for i, w := range weights {
		if w == nil || w.Sign() < 0 {
			return nil, fmt.Errorf("%w: index %d", ErrNegativeWeight, i)
		}
		weightSum.Add(weightSum, w)
	}

	parts := make([]int64, len(weights))
	if total == 0 {
		return parts, nil
	}
	if weightSum.Sign() == 0 {
		return nil, fmt.Errorf("%w: total=%d", ErrZeroWeights, total)
	}

	sign := signOf(total)
	mag := magnitude(total)

	floors := make([]*big.Int, len(weights))
	remainders := make([]*big.Rat, len(weights))
	distributed := new(big.Int)

	num := getScratch()
	den := getScratch()
	defer putScratch(num)
	defer putScratch(den)

	for i, w := range weights {
		// share = mag * (w.num/w.den) / (sum.num/sum.den)
		//       = mag * w.num * sum.den / (w.den * sum.num)
		num.Mul(mag, w.Num())
		num.Mul(num, weightSum.Denom())
		den.Mul(w.Denom(), weightSum.Num())

		q, r := new(big.Int).QuoRem(num, den, new(big.Int))
		floors[i] = q
		remainders[i] = new(big.Rat).SetFrac(r, den)
		distributed.Add(distributed, q)
	}

	leftover := new(big.Int).Sub(mag, distributed).Int64()

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].Cmp(remainders[order[b]]) > 0
	})

	for k := int64(0); k < leftover; k++ {
		idx := order[k]
		floors[idx].Add(floors[idx], big.NewInt(1))
	}

	for i, f := range floors {
		parts[i] = toSignedInt64(f, sign)
	}

	return parts, nil
}

// SplitEvenly divides total into n parts whose sizes differ by at most one
// minor unit. It is Apportion with equal weights: every remainder ties, so
// the first total mod n parts receive the extra unit.
func SplitEvenly(total int64, n int) []int64 {
	if n <= 0 {
		return nil
	}

	sign := signOf(total)
	mag := magnitude(total)
	count := big.NewInt(int64(n))

	q, r := new(big.Int).QuoRem(mag, count, new(big.Int))
	extra := r.Int64()

	parts := make([]int64, n)
	for i := range parts {
		part := new(big.Int).Set(q)
		if int64(i) < extra {
			part.Add(part, big.NewInt(1))
		}
		parts[i] = toSignedInt64(part, sign)
	}

	return parts
}
