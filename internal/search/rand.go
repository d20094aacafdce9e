package search

import "math/rand/v2"

// NewRand returns a PCG-backed source for one run. A non-zero seed makes the
// sequence a pure function of (seed, stream); seed 0 draws fresh entropy.
func NewRand(seed uint64, stream int) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, uint64(stream)))
}

// Pair draws two distinct indices in [0, n). n must be at least 2.
func Pair(r *rand.Rand, n int) (int, int) {
	i := r.IntN(n)
	j := r.IntN(n - 1)
	if j >= i {
		j++
	}
	return i, j
}
