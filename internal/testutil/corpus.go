// Package testutil holds shared fixtures for cryptbreak tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
	"github.com/RowanDark/cryptbreak/internal/ngram"
)

// Corpus is a small English sample used to train test quadgram tables.
const Corpus = `Hello world. The quick brown fox jumps over the lazy dog while the
children wiggle their toes in the sand. Defend the east wall of the castle and
send reinforcements immediately, because the enemy will attack at dawn. Meet me
at the station when the evening train arrives from the north. It was the best
of times, it was the worst of times, it was the age of wisdom, it was the age of
foolishness. There is nothing either good or bad but thinking makes it so. The
weather this morning is cold and the river is frozen near the old mill, so the
farmers gather in the village hall to discuss the harvest and the price of
wheat. Information about the operation must remain secret until the general
gives the order to move the troops across the mountain pass before winter.
Hello world, said the programmer, and the machine answered with silence.`

// QuadgramCounts returns the "GRAM COUNT" file contents for text.
func QuadgramCounts(text string) string {
	letters := alphabet.Letters(text)
	counts := make(map[string]int)
	for i := 0; i+ngram.Order <= len(letters); i++ {
		counts[letters[i:i+ngram.Order]]++
	}
	grams := make([]string, 0, len(counts))
	for g := range counts {
		grams = append(grams, g)
	}
	sort.Strings(grams)

	var sb strings.Builder
	for _, g := range grams {
		fmt.Fprintf(&sb, "%s %d\n", g, counts[g])
	}
	return sb.String()
}

// Table trains a quadgram table on Corpus.
func Table(t testing.TB) *ngram.Table {
	t.Helper()

	table, err := ngram.LoadCounts(strings.NewReader(QuadgramCounts(Corpus)))
	if err != nil {
		t.Fatalf("load corpus table: %v", err)
	}
	return table
}

// Scorer returns a scorer over the corpus table.
func Scorer(t testing.TB) *ngram.Scorer {
	t.Helper()
	return ngram.NewScorer(Table(t))
}

// WriteQuadgramFile writes the corpus counts to a temporary file and returns
// its path.
func WriteQuadgramFile(t testing.TB) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "quadgrams.txt")
	if err := os.WriteFile(path, []byte(QuadgramCounts(Corpus)), 0o644); err != nil {
		t.Fatalf("write quadgram file: %v", err)
	}
	return path
}
