package textutil

import (
	"strings"
	"unicode"
)

// Words splits text into runs of letters, digits and underscores, keeping the
// original case. Punctuation and whitespace separate words.
func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// IsCapitalized reports whether word is one uppercase letter followed by at
// least minLower lowercase letters and nothing else.
func IsCapitalized(word string, minLower int) bool {
	lower := 0
	for i, r := range word {
		if i == 0 {
			if !unicode.IsUpper(r) {
				return false
			}
			continue
		}
		if !unicode.IsLower(r) {
			return false
		}
		lower++
	}
	return word != "" && lower >= minLower
}
