package permutation

import (
	"testing"

	"github.com/RowanDark/cryptbreak/internal/cipher"
)

func TestEnumerateLexicographic(t *testing.T) {
	var got []string
	Enumerate(3, func(k cipher.Key) bool {
		got = append(got, k.String())
		return true
	})
	want := []string{"[0,1,2]", "[0,2,1]", "[1,0,2]", "[1,2,0]", "[2,0,1]", "[2,1,0]"}
	if len(got) != len(want) {
		t.Fatalf("expected %d permutations, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("permutation %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestEnumerateCounts(t *testing.T) {
	factorial := 1
	for n := 1; n <= 7; n++ {
		factorial *= n
		seen := make(map[string]bool)
		Enumerate(n, func(k cipher.Key) bool {
			if err := k.Validate(); err != nil {
				t.Fatalf("n=%d: invalid key %v: %v", n, k, err)
			}
			seen[k.String()] = true
			return true
		})
		if len(seen) != factorial {
			t.Fatalf("n=%d: expected %d distinct keys, got %d", n, factorial, len(seen))
		}
	}
}

func TestEnumerateStopsEarly(t *testing.T) {
	calls := 0
	Enumerate(5, func(cipher.Key) bool {
		calls++
		return calls < 4
	})
	if calls != 4 {
		t.Fatalf("expected enumeration to stop after 4 calls, got %d", calls)
	}

	Enumerate(0, func(cipher.Key) bool {
		t.Fatal("no permutations expected for n=0")
		return false
	})
}

func TestEnumerateFromMatchesPrefix(t *testing.T) {
	var all []string
	Enumerate(4, func(k cipher.Key) bool {
		all = append(all, k.String())
		return true
	})

	var split []string
	for first := 0; first < 4; first++ {
		enumerateFrom(4, first, func(k cipher.Key) bool {
			if k[0] != first {
				t.Fatalf("key %v does not start with %d", k, first)
			}
			split = append(split, k.String())
			return true
		})
	}
	if len(split) != len(all) {
		t.Fatalf("split enumeration produced %d keys, want %d", len(split), len(all))
	}
	for i := range all {
		if split[i] != all[i] {
			t.Fatalf("position %d: got %s want %s", i, split[i], all[i])
		}
	}
}
