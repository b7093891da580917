package textutil

import (
	"strings"
	"unicode"
)

// LabelSlug turns a label into a file name component. Whitespace runs become
// one underscore, path separators and other reserved characters become
// dashes, and quoting characters are dropped. Case and accents are kept, so
// "Las Palmas" becomes "Las_Palmas". An empty result yields "unknown".
func LabelSlug(label string) string {
	var b strings.Builder
	pendingSpace := false
	for _, r := range strings.TrimSpace(label) {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		case strings.ContainsRune(`?"<>|`, r), unicode.IsControl(r):
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingSpace = false
		if strings.ContainsRune(`/\:*`, r) {
			r = '-'
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
