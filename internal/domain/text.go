package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents removes combining marks (tonos, dialytika, acute, ...).
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	res, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return res
}

// Fold produces the comparison form of a label or place name: accents
// stripped, lowercased, final sigma folded, whitespace collapsed.
func Fold(s string) string {
	s = strings.ToLower(StripAccents(s))
	s = strings.ReplaceAll(s, "ς", "σ")
	return strings.Join(strings.Fields(s), " ")
}

// CleanText collapses runs of whitespace, non-breaking spaces included.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
