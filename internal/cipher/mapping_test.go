package cipher

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
)

const qwerty = "QWERTYUIOPASDFGHJKLZXCVBNM"

func TestMappingRoundTrip(t *testing.T) {
	m, err := ParseMapping(qwerty)
	if err != nil {
		t.Fatalf("ParseMapping: %v", err)
	}

	inputs := []string{
		"Hello, World!",
		"the quick brown fox jumps over the lazy dog",
		"1234 -- no letters? a few.",
		"",
	}
	for _, in := range inputs {
		ct := m.Encrypt(in)
		if got := m.Decrypt(ct); got != strings.ToUpper(in) {
			t.Errorf("Decrypt(Encrypt(%q)) = %q", in, got)
		}
		// Decrypting with the inverse mapping is encryption.
		if got := m.Inverse().Decrypt(in); got != ct {
			t.Errorf("inverse mismatch for %q: %q vs %q", in, got, ct)
		}
	}
}

func TestMappingPreservesNonLetters(t *testing.T) {
	m := Identity()
	if got := m.Decrypt("a-b c.d"); got != "A-B C.D" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestMappingValidation(t *testing.T) {
	if _, err := ParseMapping("ABC"); !errors.Is(err, ErrInvalidMapping) {
		t.Fatalf("expected ErrInvalidMapping for short mapping, got %v", err)
	}
	if _, err := ParseMapping(strings.Repeat("A", 26)); !errors.Is(err, ErrInvalidMapping) {
		t.Fatalf("expected ErrInvalidMapping for repeated letters, got %v", err)
	}
	if _, err := FromPerm([]int{0, 1}); !errors.Is(err, ErrInvalidMapping) {
		t.Fatalf("expected ErrInvalidMapping for short perm, got %v", err)
	}
	var raw [26]byte
	raw[0] = 30
	if _, err := NewMapping(raw); !errors.Is(err, ErrInvalidMapping) {
		t.Fatalf("expected ErrInvalidMapping for out-of-range entry, got %v", err)
	}
}

func TestSwapPlainKeepsBijection(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	m, err := FromPerm(rng.Perm(26))
	if err != nil {
		t.Fatalf("FromPerm: %v", err)
	}
	for i := 0; i < 500; i++ {
		a := byte(rng.IntN(26))
		b := byte(rng.IntN(26))
		before := m
		m = m.SwapPlain(a, b)
		if !m.Valid() {
			t.Fatalf("swap %d/%d broke the bijection: %v", a, b, m)
		}
		if a != b && before == m {
			t.Fatalf("swap %d/%d did not change the mapping", a, b)
		}
		inv := m.Inverse()
		if a != b && (inv[a] != before.Inverse()[b] || inv[b] != before.Inverse()[a]) {
			t.Fatalf("swap %d/%d exchanged the wrong cipher letters", a, b)
		}
	}
}

func TestMappingTable(t *testing.T) {
	table := Identity().Table()
	if !strings.Contains(table, "A -> A") || !strings.Contains(table, "Z -> Z") {
		t.Fatalf("unexpected table:\n%s", table)
	}
	if Identity().String() != "ABCDEFGHIJKLMNOPQRSTUVWXYZ" {
		t.Fatalf("unexpected String %q", Identity().String())
	}
}
