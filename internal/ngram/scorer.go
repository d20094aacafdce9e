package ngram

import (
	"sync"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
)

// Model scores normalized text. Implementations must be pure and safe for
// concurrent use.
type Model interface {
	// ScoreCodes scores a sequence of alphabet indices (0-25).
	ScoreCodes(codes []byte) float64
}

// Scorer sums quadgram log probabilities over a text.
type Scorer struct {
	table *Table
}

// NewScorer wraps a table.
func NewScorer(t *Table) *Scorer {
	return &Scorer{table: t}
}

// Table returns the underlying table.
func (s *Scorer) Table() *Table {
	return s.table
}

// Score uppercases text, strips non-letters and sums the log probability of
// every overlapping quadgram. Texts with fewer than four letters score 0.
func (s *Scorer) Score(text string) float64 {
	var stack [256]byte
	return s.ScoreCodes(alphabet.AppendCodes(stack[:0], text))
}

// ScoreCodes scores a sequence of alphabet indices.
func (s *Scorer) ScoreCodes(codes []byte) float64 {
	if len(codes) < Order {
		return 0
	}
	const mask = alphabet.Size * alphabet.Size * alphabet.Size
	probs := s.table.probs

	idx := int(codes[0])*alphabet.Size*alphabet.Size + int(codes[1])*alphabet.Size + int(codes[2])
	var score float64
	for i := Order - 1; i < len(codes); i++ {
		idx = (idx%mask)*alphabet.Size + int(codes[i])
		score += probs[idx]
	}
	return score
}

var (
	defaultMu     sync.RWMutex
	defaultScorer *Scorer
)

// SetDefault installs the process-wide scorer. It is intended to be called
// once during start-up, before any search begins.
func SetDefault(t *Table) *Scorer {
	s := NewScorer(t)
	defaultMu.Lock()
	defaultScorer = s
	defaultMu.Unlock()
	return s
}

// Default returns the process-wide scorer, or nil when no table was loaded.
func Default() *Scorer {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultScorer
}
