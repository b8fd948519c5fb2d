package codec

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldName converts a human-friendly property name into its camelCase
// field name: "Full Name" becomes "fullName", "URL handle" becomes
// "urlHandle" and "is_public" becomes "isPublic".
func FieldName(human string) string {
	// Casers are stateful and must not be shared between goroutines.
	lowerCaser := cases.Lower(language.Und)
	titleCaser := cases.Title(language.Und)
	words := splitWords(human)
	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			b.WriteString(lowerCaser.String(w))
			continue
		}
		b.WriteString(titleCaser.String(w))
	}
	return b.String()
}

// splitWords breaks s on separators and on case boundaries. An upper-case
// run followed by a lower-case letter ends one letter early, so "URLName"
// yields "URL" and "Name".
func splitWords(s string) []string {
	runes := []rune(s)
	var words []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(runes[start:end]))
		}
		start = -1
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		switch {
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			flush(i)
			start = i
		}
	}
	flush(len(runes))
	return words
}
