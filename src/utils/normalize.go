// backend/src/utils/normalize.go
package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	titleCaser = cases.Title(language.Und)
)

// NormalizeText folds a free-text term into the canonical form used for all
// supplier matching: lower-case, diacritics removed, and whitespace, hyphens,
// underscores, dots and slashes stripped. The function is idempotent, so
// already-normalized input passes through unchanged.
func NormalizeText(s string) string {
	folded, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == '/' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FoldMarks removes combining diacritical marks but preserves case and
// separators. Used where casing itself is meaningful (e.g. statement-text
// extraction rules that key on all-uppercase words).
func FoldMarks(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return folded
}

// TitleCase returns a display-friendly title-cased form of s.
func TitleCase(s string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(s)))
}
