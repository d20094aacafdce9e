// Package freq implements single-letter frequency analysis: observed counts,
// reference language profiles, seed mappings for substitution search, and
// the index of coincidence / chi-squared statistics used for cipher
// classification.
package freq

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
)

// DefaultOrder is the English letter order from most to least frequent.
const DefaultOrder = "ETAOINSHRDLCUMWFGYPBVKJXQZ"

// EnglishIC is the expected index of coincidence of English text.
const EnglishIC = 0.0667

// RandomIC is the index of coincidence of uniformly random letters.
const RandomIC = 1.0 / alphabet.Size

// English holds reference letter frequencies in percent, indexed by alphabet
// position.
var English = [alphabet.Size]float64{
	8.17, 1.29, 2.78, 4.25, 12.70, 2.23, 2.02, 6.09, 6.97, 0.15, 0.77, 4.03, 2.41,
	6.75, 7.51, 1.93, 0.10, 5.99, 6.33, 9.06, 2.76, 0.98, 2.36, 0.15, 1.97, 0.07,
}

// Counts tallies letters in text, ignoring case and non-letters.
func Counts(text string) (counts [alphabet.Size]int, total int) {
	for i := 0; i < len(text); i++ {
		if c, ok := alphabet.Code(text[i]); ok {
			counts[c]++
			total++
		}
	}
	return counts, total
}

// Frequencies returns letter frequencies in percent. Text without letters
// yields all zeros.
func Frequencies(text string) [alphabet.Size]float64 {
	var out [alphabet.Size]float64
	counts, total := Counts(text)
	if total == 0 {
		return out
	}
	for i, n := range counts {
		out[i] = float64(n) / float64(total) * 100
	}
	return out
}

// Rank returns the letters present in text ordered by descending count. Ties
// are broken alphabetically so the ranking is deterministic.
func Rank(text string) []byte {
	counts, _ := Counts(text)
	present := make([]byte, 0, alphabet.Size)
	for c, n := range counts {
		if n > 0 {
			present = append(present, byte(c))
		}
	}
	sort.SliceStable(present, func(i, j int) bool {
		return counts[present[i]] > counts[present[j]]
	})
	return present
}

// OrderOf ranks the alphabet by descending reference frequency.
func OrderOf(freqs [alphabet.Size]float64) string {
	letters := []byte(alphabet.Upper)
	sort.SliceStable(letters, func(i, j int) bool {
		return freqs[letters[i]-'A'] > freqs[letters[j]-'A']
	})
	return string(letters)
}

// ValidateOrder checks that order is a permutation of the alphabet.
func ValidateOrder(order string) error {
	if len(order) != alphabet.Size {
		return fmt.Errorf("frequency order must have %d letters, got %d", alphabet.Size, len(order))
	}
	var seen [alphabet.Size]bool
	for i := 0; i < len(order); i++ {
		c, ok := alphabet.Code(order[i])
		if !ok {
			return fmt.Errorf("frequency order contains non-letter %q", order[i])
		}
		if seen[c] {
			return fmt.Errorf("frequency order repeats %q", alphabet.Letter(c))
		}
		seen[c] = true
	}
	return nil
}

// SeedMapping pairs cipher letters ranked by observed frequency with plain
// letters ranked by the reference order. Cipher letters absent from text take
// the remaining plain letters in alphabetical order, so the result is always
// a full bijection indexed by cipher letter. An empty order selects
// DefaultOrder.
func SeedMapping(text, order string) ([alphabet.Size]byte, error) {
	var mapping [alphabet.Size]byte
	if order == "" {
		order = DefaultOrder
	}
	if err := ValidateOrder(order); err != nil {
		return mapping, err
	}
	order = strings.ToUpper(order)

	var assigned, used [alphabet.Size]bool
	for rank, cipherLetter := range Rank(text) {
		plain := order[rank] - 'A'
		mapping[cipherLetter] = plain
		assigned[cipherLetter] = true
		used[plain] = true
	}

	next := byte(0)
	for c := byte(0); c < alphabet.Size; c++ {
		if assigned[c] {
			continue
		}
		for used[next] {
			next++
		}
		mapping[c] = next
		used[next] = true
	}
	return mapping, nil
}

// IndexOfCoincidence is the probability that two letters drawn without
// replacement from text are equal. Fewer than two letters yields 0.
func IndexOfCoincidence(text string) float64 {
	counts, total := Counts(text)
	if total < 2 {
		return 0
	}
	var sum float64
	for _, n := range counts {
		sum += float64(n) * float64(n-1)
	}
	return sum / (float64(total) * float64(total-1))
}

// ChiSquared compares the letter frequencies of text against expected
// percentages. Lower values mean a closer match.
func ChiSquared(text string, expected [alphabet.Size]float64) float64 {
	observed := Frequencies(text)
	var chi float64
	for i, exp := range expected {
		if exp <= 0 {
			continue
		}
		d := observed[i] - exp
		chi += d * d / exp
	}
	return chi
}
