// Package ngram provides the quadgram language model used to score candidate
// plaintexts.
package ngram

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
)

// Order is the n-gram length of the model.
const Order = 4

const tableSize = alphabet.Size * alphabet.Size * alphabet.Size * alphabet.Size

// ErrEmptyTable is returned when a table source contains no usable n-grams.
var ErrEmptyTable = errors.New("ngram table is empty")

// Table maps every quadgram to a log10 probability. Quadgrams that were never
// observed resolve to the floor value. A Table is immutable once built and
// safe for concurrent reads.
type Table struct {
	probs []float64
	floor float64
	known int
}

// FromLogProbs builds a table from an externally supplied quadgram to
// log-probability mapping. Keys are case-insensitive and must contain exactly
// four letters. Two keys that differ only in case are rejected.
func FromLogProbs(logProbs map[string]float64, floor float64) (*Table, error) {
	if len(logProbs) == 0 {
		return nil, ErrEmptyTable
	}
	t := newTable(floor)
	seen := make(map[int]string, len(logProbs))
	for gram, lp := range logProbs {
		idx, ok := index(gram)
		if !ok {
			return nil, fmt.Errorf("invalid quadgram %q", gram)
		}
		if math.IsNaN(lp) || math.IsInf(lp, 0) {
			return nil, fmt.Errorf("invalid log probability for %q: %v", gram, lp)
		}
		if prev, dup := seen[idx]; dup {
			return nil, fmt.Errorf("duplicate quadgram %q (also given as %q)", gram, prev)
		}
		seen[idx] = gram
		t.probs[idx] = lp
		t.known++
	}
	return t, nil
}

// LoadCounts reads "GRAM COUNT" lines and converts the counts into log10
// probabilities. The floor is log10(0.01/total) so unseen quadgrams are
// penalised without failing.
func LoadCounts(r io.Reader) (*Table, error) {
	counts := make(map[int]float64)
	var total float64

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"GRAM COUNT\", got %q", line, scanner.Text())
		}
		idx, ok := index(fields[0])
		if !ok {
			return nil, fmt.Errorf("line %d: invalid quadgram %q", line, fields[0])
		}
		count, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid count %q: %w", line, fields[1], err)
		}
		if count == 0 {
			continue
		}
		counts[idx] += float64(count)
		total += float64(count)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read quadgram counts: %w", err)
	}
	if total == 0 {
		return nil, ErrEmptyTable
	}

	t := newTable(math.Log10(0.01 / total))
	for idx, count := range counts {
		t.probs[idx] = math.Log10(count / total)
		t.known++
	}
	return t, nil
}

// LoadFile reads a quadgram count file from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quadgram file: %w", err)
	}
	defer f.Close()

	t, err := LoadCounts(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Lookup returns the log probability of gram, or the floor when the quadgram
// is unknown or malformed.
func (t *Table) Lookup(gram string) float64 {
	idx, ok := index(gram)
	if !ok {
		return t.floor
	}
	return t.probs[idx]
}

// Floor is the log probability assigned to unseen quadgrams.
func (t *Table) Floor() float64 {
	return t.floor
}

// Len reports how many distinct quadgrams the table knows.
func (t *Table) Len() int {
	return t.known
}

func newTable(floor float64) *Table {
	probs := make([]float64, tableSize)
	for i := range probs {
		probs[i] = floor
	}
	return &Table{probs: probs, floor: floor}
}

func index(gram string) (int, bool) {
	if len(gram) != Order {
		return 0, false
	}
	idx := 0
	for i := 0; i < Order; i++ {
		c, ok := alphabet.Code(gram[i])
		if !ok {
			return 0, false
		}
		idx = idx*alphabet.Size + int(c)
	}
	return idx, true
}
