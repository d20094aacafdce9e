// Package alphabet normalizes text onto the 26-letter Latin alphabet used by
// every cipher and scorer in cryptbreak.
package alphabet

import "strings"

// Size is the number of symbols in the working alphabet.
const Size = 26

// Upper is the alphabet in code order.
const Upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Code returns the alphabet index of b (case-insensitive) and whether b is a
// letter at all.
func Code(b byte) (byte, bool) {
	switch {
	case b >= 'A' && b <= 'Z':
		return b - 'A', true
	case b >= 'a' && b <= 'z':
		return b - 'a', true
	default:
		return 0, false
	}
}

// Letter converts an alphabet index back to its uppercase letter.
func Letter(code byte) byte {
	return 'A' + code
}

// Codes strips every non-letter from text and returns the remaining letters
// as alphabet indices.
func Codes(text string) []byte {
	out := make([]byte, 0, len(text))
	return AppendCodes(out, text)
}

// AppendCodes appends the alphabet indices of the letters in text to dst.
func AppendCodes(dst []byte, text string) []byte {
	for i := 0; i < len(text); i++ {
		if c, ok := Code(text[i]); ok {
			dst = append(dst, c)
		}
	}
	return dst
}

// Letters returns text uppercased with every non-letter removed.
func Letters(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if c, ok := Code(text[i]); ok {
			sb.WriteByte(Letter(c))
		}
	}
	return sb.String()
}

// String renders alphabet indices as uppercase letters.
func String(codes []byte) string {
	buf := make([]byte, len(codes))
	for i, c := range codes {
		buf[i] = Letter(c)
	}
	return string(buf)
}
