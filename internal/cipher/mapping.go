package cipher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
)

// ErrInvalidMapping is returned when a substitution key is not a bijection.
var ErrInvalidMapping = errors.New("invalid substitution mapping")

// Mapping is a substitution key: Mapping[c] is the plain letter (as an
// alphabet index) that cipher letter c decrypts to. A valid Mapping is always
// a permutation of the alphabet.
type Mapping [alphabet.Size]byte

// Identity returns the mapping that leaves every letter unchanged.
func Identity() Mapping {
	var m Mapping
	for i := range m {
		m[i] = byte(i)
	}
	return m
}

// NewMapping validates a raw cipher-to-plain table.
func NewMapping(raw [alphabet.Size]byte) (Mapping, error) {
	m := Mapping(raw)
	if !m.Valid() {
		return Mapping{}, fmt.Errorf("%w: %v", ErrInvalidMapping, raw)
	}
	return m, nil
}

// FromPerm converts a permutation of 0..25 (as produced by rand.Perm) into a
// mapping.
func FromPerm(perm []int) (Mapping, error) {
	if len(perm) != alphabet.Size {
		return Mapping{}, fmt.Errorf("%w: expected %d entries, got %d", ErrInvalidMapping, alphabet.Size, len(perm))
	}
	var raw [alphabet.Size]byte
	for i, p := range perm {
		if p < 0 || p >= alphabet.Size {
			return Mapping{}, fmt.Errorf("%w: entry %d out of range", ErrInvalidMapping, p)
		}
		raw[i] = byte(p)
	}
	return NewMapping(raw)
}

// ParseMapping reads a 26-letter string where the i-th letter is the plain
// letter for cipher letter i.
func ParseMapping(s string) (Mapping, error) {
	s = strings.TrimSpace(s)
	if len(s) != alphabet.Size {
		return Mapping{}, fmt.Errorf("%w: expected %d letters, got %d", ErrInvalidMapping, alphabet.Size, len(s))
	}
	var raw [alphabet.Size]byte
	for i := 0; i < len(s); i++ {
		c, ok := alphabet.Code(s[i])
		if !ok {
			return Mapping{}, fmt.Errorf("%w: %q is not a letter", ErrInvalidMapping, s[i])
		}
		raw[i] = c
	}
	return NewMapping(raw)
}

// Valid reports whether m is a permutation of the alphabet.
func (m Mapping) Valid() bool {
	var seen [alphabet.Size]bool
	for _, p := range m {
		if p >= alphabet.Size || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

// Inverse returns the plain-to-cipher mapping.
func (m Mapping) Inverse() Mapping {
	var inv Mapping
	for c, p := range m {
		inv[p] = byte(c)
	}
	return inv
}

// SwapPlain exchanges the cipher letters that decrypt to plain letters a and
// b. The receiver is left untouched.
func (m Mapping) SwapPlain(a, b byte) Mapping {
	var x, y int
	for c, p := range m {
		switch p {
		case a:
			x = c
		case b:
			y = c
		}
	}
	m[x], m[y] = m[y], m[x]
	return m
}

// Apply translates alphabet indices through the mapping into dst.
func (m Mapping) Apply(dst, codes []byte) []byte {
	dst = dst[:0]
	for _, c := range codes {
		dst = append(dst, m[c])
	}
	return dst
}

// Decrypt uppercases text and replaces every letter by its plain letter.
// Non-letters are preserved.
func (m Mapping) Decrypt(text string) string {
	return m.translate(text)
}

// Encrypt is the inverse of Decrypt.
func (m Mapping) Encrypt(text string) string {
	return m.Inverse().translate(text)
}

func (m Mapping) translate(text string) string {
	out := []byte(text)
	for i, b := range out {
		if c, ok := alphabet.Code(b); ok {
			out[i] = alphabet.Letter(m[c])
		}
	}
	return string(out)
}

// String renders the mapping as the 26 plain letters in cipher order.
func (m Mapping) String() string {
	return alphabet.String(m[:])
}

// Table renders a cipher -> plain listing, one pair per line.
func (m Mapping) Table() string {
	var sb strings.Builder
	sb.WriteString("cipher -> plain\n")
	for c, p := range m {
		fmt.Fprintf(&sb, "  %c -> %c\n", alphabet.Letter(byte(c)), alphabet.Letter(p))
	}
	return sb.String()
}
