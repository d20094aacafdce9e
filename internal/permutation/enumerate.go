package permutation

import "github.com/RowanDark/cryptbreak/internal/cipher"

// Enumerate calls fn with every permutation of 0..n-1 in lexicographic order
// until fn returns false. The key passed to fn is reused between calls; clone
// it to keep it.
func Enumerate(n int, fn func(cipher.Key) bool) {
	if n <= 0 {
		return
	}
	key := make(cipher.Key, n)
	for i := range key {
		key[i] = i
	}
	for {
		if !fn(key) {
			return
		}
		if !nextPermutation(key) {
			return
		}
	}
}

// enumerateFrom walks the permutations of 0..n-1 that start with first, in
// lexicographic order.
func enumerateFrom(n, first int, fn func(cipher.Key) bool) {
	key := make(cipher.Key, 0, n)
	key = append(key, first)
	for v := 0; v < n; v++ {
		if v != first {
			key = append(key, v)
		}
	}
	for {
		if !fn(key) {
			return
		}
		if !nextPermutation(key[1:]) {
			return
		}
	}
}

// nextPermutation rearranges p into its lexicographic successor in place and
// reports false when p was already the last permutation.
func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	for l, r := i+1, len(p)-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}
	return true
}
