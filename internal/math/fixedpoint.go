package math

import (
	"math/big"
	"sync"
)

// scratchPool recycles arbitrary-size big.Int temporaries used by Apportion.
var scratchPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getScratch() *big.Int {
	return scratchPool.Get().(*big.Int)
}

func putScratch(v *big.Int) {
	v.SetInt64(0) // Clear before returning to pool
	scratchPool.Put(v)
}

// magnitude returns |v| as a big.Int. Safe for math.MinInt64.
func magnitude(v int64) *big.Int {
	return new(big.Int).Abs(big.NewInt(v))
}

// signOf returns -1 for negative values and +1 otherwise.
func signOf(v int64) int64 {
	if v < 0 {
		return -1
	}
	return 1
}

// toSignedInt64 converts a non-negative part back to the caller's sign.
// Parts never exceed |total|, so the conversion cannot overflow.
func toSignedInt64(part *big.Int, sign int64) int64 {
	if sign < 0 {
		return new(big.Int).Neg(part).Int64()
	}
	return part.Int64()
}
