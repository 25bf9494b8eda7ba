package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s, strips diacritics and trims surrounding space so that
// "Kraków" and "krakow " compare equal.
func fold(s string) string {
	out, _, err := transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)
	if err != nil {
		return strings.TrimSpace(strings.ToLower(s))
	}
	return out
}

// containsFold reports whether needle occurs in haystack after folding both.
func containsFold(haystack, needle string) bool {
	return strings.Contains(fold(haystack), fold(needle))
}
