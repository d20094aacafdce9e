package cipher

import (
	"context"
	"testing"

	"github.com/RowanDark/cryptbreak/internal/testutil"
)

func TestDetectTransposition(t *testing.T) {
	ct, err := EncryptColumnar(testutil.Corpus, Key{3, 0, 4, 1, 2})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	results, err := NewFrequencyDetector().Detect(context.Background(), []byte(ct))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if results[0].Kind != KindTransposition || results[0].Confidence < 0.8 {
		t.Fatalf("expected confident transposition, got %+v", results)
	}
	t.Logf("Detected %s with confidence %.2f: %s", results[0].Kind, results[0].Confidence, results[0].Reasoning)
}

func TestDetectSubstitution(t *testing.T) {
	m, err := ParseMapping(qwerty)
	if err != nil {
		t.Fatalf("ParseMapping: %v", err)
	}
	ct := m.Encrypt(testutil.Corpus)

	results, err := NewFrequencyDetector().Detect(context.Background(), []byte(ct))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if results[0].Kind != KindSubstitution {
		t.Fatalf("expected substitution first, got %+v", results)
	}
	if results[0].Operation != "substitution_decrypt" {
		t.Fatalf("unexpected suggested operation %q", results[0].Operation)
	}
}

func TestDetectShortAndEmpty(t *testing.T) {
	d := NewFrequencyDetector()
	if _, err := d.Detect(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}

	results, err := d.Detect(context.Background(), []byte("XQZ JK"))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(results) != 1 || results[0].Kind != KindUnknown {
		t.Fatalf("expected a single unknown result, got %+v", results)
	}
}

func TestDetectRandomLetters(t *testing.T) {
	// Every letter equally often: IC well below a monoalphabetic text.
	var text []byte
	for i := 0; i < 8; i++ {
		text = append(text, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"...)
	}
	results, err := NewFrequencyDetector().Detect(context.Background(), text)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if results[0].Kind != KindUnknown {
		t.Fatalf("expected unknown for flat distribution, got %+v", results)
	}
}

func TestSupportedKinds(t *testing.T) {
	kinds := NewFrequencyDetector().SupportedKinds()
	if len(kinds) != 2 {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}
