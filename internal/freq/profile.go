package freq

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
)

// Profile is a reference language letter distribution.
type Profile struct {
	Frequencies [alphabet.Size]float64
	Order       string
}

// EnglishProfile returns the built-in English profile.
func EnglishProfile() Profile {
	return Profile{Frequencies: English, Order: DefaultOrder}
}

// LoadUnigramCSV derives a letter profile from a "word,count" CSV with a
// header row. Every letter of a word contributes the word's count.
func LoadUnigramCSV(r io.Reader) (Profile, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Profile{}, errors.New("unigram csv is empty")
		}
		return Profile{}, fmt.Errorf("read unigram header: %w", err)
	}
	wordCol, countCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "word":
			wordCol = i
		case "count":
			countCol = i
		}
	}
	if wordCol < 0 || countCol < 0 {
		return Profile{}, fmt.Errorf("unigram csv header must contain word and count columns, got %v", header)
	}

	var letters [alphabet.Size]float64
	var total float64
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Profile{}, fmt.Errorf("read unigram row: %w", err)
		}
		if wordCol >= len(record) || countCol >= len(record) {
			continue
		}
		count, err := strconv.ParseFloat(strings.TrimSpace(record[countCol]), 64)
		if err != nil || count <= 0 {
			continue
		}
		word := record[wordCol]
		for i := 0; i < len(word); i++ {
			if c, ok := alphabet.Code(word[i]); ok {
				letters[c] += count
				total += count
			}
		}
	}
	if total == 0 {
		return Profile{}, errors.New("unigram csv contains no letters")
	}

	var p Profile
	for i, n := range letters {
		p.Frequencies[i] = n / total * 100
	}
	p.Order = OrderOf(p.Frequencies)
	return p, nil
}

// LoadUnigramFile reads a unigram CSV from disk.
func LoadUnigramFile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, fmt.Errorf("open unigram file: %w", err)
	}
	defer f.Close()
	return LoadUnigramCSV(f)
}
