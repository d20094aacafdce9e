package ngram_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
	"github.com/RowanDark/cryptbreak/internal/ngram"
	"github.com/RowanDark/cryptbreak/internal/testutil"
)

func TestLoadCounts(t *testing.T) {
	input := `# comment
THEM 3
HEMS 1

ABCD 0
`
	table, err := ngram.LoadCounts(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCounts: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 known quadgrams, got %d", table.Len())
	}
	if got, want := table.Lookup("THEM"), math.Log10(3.0/4.0); got != want {
		t.Errorf("THEM: got %v, want %v", got, want)
	}
	if got, want := table.Lookup("hems"), math.Log10(1.0/4.0); got != want {
		t.Errorf("hems: got %v, want %v", got, want)
	}
	if got, want := table.Floor(), math.Log10(0.01/4.0); got != want {
		t.Errorf("floor: got %v, want %v", got, want)
	}
	if got := table.Lookup("ABCD"); got != table.Floor() {
		t.Errorf("zero-count gram should resolve to floor, got %v", got)
	}
	if got := table.Lookup("AB"); got != table.Floor() {
		t.Errorf("malformed gram should resolve to floor, got %v", got)
	}
}

func TestLoadCountsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing count", "THEM\n"},
		{"bad gram", "TH3M 4\n"},
		{"bad count", "THEM four\n"},
		{"short gram", "THE 4\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ngram.LoadCounts(strings.NewReader(tt.input)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := ngram.LoadCounts(strings.NewReader("")); !errors.Is(err, ngram.ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

func TestFromLogProbs(t *testing.T) {
	table, err := ngram.FromLogProbs(map[string]float64{"tion": -2, "THER": -2.5}, -10)
	if err != nil {
		t.Fatalf("FromLogProbs: %v", err)
	}
	scorer := ngram.NewScorer(table)

	// TION + IONX(floor) + ONXX(floor)
	if got := scorer.Score("tion-xx"); got != -22 {
		t.Fatalf("unexpected score %v", got)
	}

	if _, err := ngram.FromLogProbs(map[string]float64{"TOOLONG": -1}, -10); err == nil {
		t.Fatal("expected error for malformed quadgram")
	}
	if _, err := ngram.FromLogProbs(nil, -10); !errors.Is(err, ngram.ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 known quadgrams, got %d", table.Len())
	}
}

func TestFromLogProbsRejectsCaseDuplicates(t *testing.T) {
	_, err := ngram.FromLogProbs(map[string]float64{"tion": -2, "TION": -3, "ther": -2.5}, -10)
	if err == nil || !strings.Contains(err.Error(), "duplicate quadgram") {
		t.Fatalf("expected duplicate quadgram error, got %v", err)
	}
}

func TestScoreNormalizesInput(t *testing.T) {
	scorer := testutil.Scorer(t)

	a := scorer.Score("Hello, World!")
	b := scorer.Score("HELLOWORLD")
	if a != b {
		t.Fatalf("normalization mismatch: %v vs %v", a, b)
	}
	if c := scorer.ScoreCodes(alphabet.Codes("hello world")); c != a {
		t.Fatalf("ScoreCodes mismatch: %v vs %v", c, a)
	}
}

func TestScoreShortText(t *testing.T) {
	scorer := testutil.Scorer(t)
	for _, text := range []string{"", "A", "ab", "t h e", "..."} {
		if got := scorer.Score(text); got != 0 {
			t.Errorf("Score(%q) = %v, want 0", text, got)
		}
	}
}

func TestScoreWindowCount(t *testing.T) {
	table := testutil.Table(t)
	scorer := ngram.NewScorer(table)

	text := "ZZZZZZZ"
	want := 4 * table.Floor()
	if got := scorer.Score(text); got != want {
		t.Fatalf("expected %d floor windows (%v), got %v", 4, want, got)
	}
}

func TestEnglishBeatsShuffledLetters(t *testing.T) {
	scorer := testutil.Scorer(t)
	phrase := "defend the east wall of the castle"
	letters := []byte(alphabet.Letters(phrase))

	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 20; i++ {
		shuffled := append([]byte(nil), letters...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if string(shuffled) == string(letters) {
			continue
		}
		if scorer.Score(phrase) <= scorer.Score(string(shuffled)) {
			t.Fatalf("phrase should outscore shuffle %q", shuffled)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	scorer := testutil.Scorer(t)
	text := testutil.Corpus
	first := scorer.Score(text)
	for i := 0; i < 5; i++ {
		if got := scorer.Score(text); math.Float64bits(got) != math.Float64bits(first) {
			t.Fatalf("score changed between calls: %v vs %v", got, first)
		}
	}
}

func TestDefaultScorer(t *testing.T) {
	table := testutil.Table(t)
	s := ngram.SetDefault(table)
	if ngram.Default() != s {
		t.Fatal("Default did not return installed scorer")
	}
	if s.Table() != table {
		t.Fatal("scorer table mismatch")
	}
}

func TestLoadFile(t *testing.T) {
	path := testutil.WriteQuadgramFile(t)
	table, err := ngram.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if table.Len() == 0 {
		t.Fatal("expected non-empty table")
	}
	if _, err := ngram.LoadFile(path + ".missing"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func BenchmarkScore(b *testing.B) {
	scorer := testutil.Scorer(b)
	codes := alphabet.Codes(testutil.Corpus)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scorer.ScoreCodes(codes)
	}
}
