package recording

import (
	"path"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical capture date format.
const DateLayout = "2006-01-02"

var supportedExtensions = []string{".mp3", ".m4a", ".wav", ".ogg", ".flac", ".aac"}

var embeddedDate = regexp.MustCompile(`(\d{4})[-_](\d{2})[-_](\d{2})`)

// SupportedExtensions returns the accepted audio extensions, lowercase with
// leading dots.
func SupportedExtensions() []string {
	out := make([]string, len(supportedExtensions))
	copy(out, supportedExtensions)
	return out
}

// IsSupported reports whether name ends in a supported audio extension,
// ignoring case.
func IsSupported(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, candidate := range supportedExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// DateSource names where a capture date came from.
type DateSource string

const (
	DateFromName       DateSource = "name"
	DateFromModified   DateSource = "modified"
	DateFromProcessing DateSource = "processing"
)

// CaptureDate resolves the calendar day for a recording. A date embedded in
// the name (YYYY-MM-DD or YYYY_MM_DD) wins; otherwise the modification time in
// the local time zone is used; otherwise now. Embedded dates that are not real
// calendar days are ignored.
func CaptureDate(name string, modified, now time.Time) (string, DateSource) {
	for _, m := range embeddedDate.FindAllStringSubmatch(name, -1) {
		candidate := m[1] + "-" + m[2] + "-" + m[3]
		if _, err := time.ParseInLocation(DateLayout, candidate, time.Local); err == nil {
			return candidate, DateFromName
		}
	}
	if !modified.IsZero() {
		return modified.In(time.Local).Format(DateLayout), DateFromModified
	}
	return now.In(time.Local).Format(DateLayout), DateFromProcessing
}
