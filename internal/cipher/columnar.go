package cipher

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
)

// ErrInvalidKey is returned for transposition keys that are not a
// permutation of 0..n-1.
var ErrInvalidKey = errors.New("invalid transposition key")

// Key is a columnar transposition key. Key[c] is the read rank of column c:
// columns are read out in ascending key value.
type Key []int

// ParseKey reads a comma or space separated list of column ranks.
func ParseKey(s string) (Key, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '[' || r == ']' })
	key := make(Key, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidKey, f)
		}
		key = append(key, v)
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return key, nil
}

// Validate checks that k is a non-empty permutation of 0..len(k)-1.
func (k Key) Validate() error {
	if len(k) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	seen := make([]bool, len(k))
	for i, v := range k {
		if v < 0 || v >= len(k) {
			return fmt.Errorf("%w: value %d at position %d out of range", ErrInvalidKey, v, i)
		}
		if seen[v] {
			return fmt.Errorf("%w: duplicate value %d", ErrInvalidKey, v)
		}
		seen[v] = true
	}
	return nil
}

// Clone returns an independent copy of k.
func (k Key) Clone() Key {
	return append(Key(nil), k...)
}

// Equal reports whether two keys are identical.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Columnar is the grid layout for a given text length and key length. It
// precomputes column heights and keeps scratch space so repeated decryption
// under different keys does not allocate.
type Columnar struct {
	length int
	cols   int
	rows   int
	full   int // columns 0..full-1 hold rows characters, the rest rows-1
	order  []int
}

// NewColumnar lays out a grid of length characters in cols columns.
func NewColumnar(length, cols int) *Columnar {
	rows := 0
	if cols > 0 {
		rows = (length + cols - 1) / cols
	}
	full := cols
	if cols > 0 && length%cols != 0 {
		full = length % cols
	}
	return &Columnar{length: length, cols: cols, rows: rows, full: full, order: make([]int, cols)}
}

// Rows is ceil(length/cols).
func (g *Columnar) Rows() int {
	return g.rows
}

// Height returns how many characters column col holds.
func (g *Columnar) Height(col int) int {
	if col < g.full {
		return g.rows
	}
	return g.rows - 1
}

func (g *Columnar) readOrder(key Key) {
	for col, rank := range key {
		g.order[rank] = col
	}
}

// DecryptInto partitions src into column buffers in key order and writes the
// grid row-major into dst. key must be a valid permutation of length cols and
// src must hold exactly length symbols.
func (g *Columnar) DecryptInto(dst, src []byte, key Key) []byte {
	dst = resize(dst, g.length)
	g.readOrder(key)
	pos := 0
	for _, col := range g.order {
		h := g.Height(col)
		for r := 0; r < h; r++ {
			dst[r*g.cols+col] = src[pos]
			pos++
		}
	}
	return dst
}

// EncryptInto fills the grid row-major from src and reads it out column by
// column in key order.
func (g *Columnar) EncryptInto(dst, src []byte, key Key) []byte {
	dst = resize(dst, g.length)
	g.readOrder(key)
	pos := 0
	for _, col := range g.order {
		h := g.Height(col)
		for r := 0; r < h; r++ {
			dst[pos] = src[r*g.cols+col]
			pos++
		}
	}
	return dst
}

func resize(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}

// DecryptColumnar strips non-letters from ciphertext, uppercases it and
// undoes a columnar transposition under key.
func DecryptColumnar(ciphertext string, key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	letters := []byte(alphabet.Letters(ciphertext))
	g := NewColumnar(len(letters), len(key))
	return string(g.DecryptInto(nil, letters, key)), nil
}

// EncryptColumnar strips non-letters from plaintext, uppercases it and applies
// a columnar transposition under key.
func EncryptColumnar(plaintext string, key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	letters := []byte(alphabet.Letters(plaintext))
	g := NewColumnar(len(letters), len(key))
	return string(g.EncryptInto(nil, letters, key)), nil
}
