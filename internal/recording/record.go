package recording

import (
	"math"
	"strings"
)

// Record is one transcribed recording. Build values with NewRecord and treat
// them as read-only.
type Record struct {
	SourceName  string
	CaptureDate string
	// DurationMinutes is nil when the duration could not be probed.
	DurationMinutes *float64
	Label           string
	Text            string
}

// NewRecord assembles a Record, trimming the transcript and converting the
// probed duration (seconds, zero or negative when unknown) to minutes.
func NewRecord(sourceName, captureDate string, durationSeconds float64, label, text string) Record {
	rec := Record{
		SourceName:  sourceName,
		CaptureDate: captureDate,
		Label:       label,
		Text:        strings.TrimSpace(text),
	}
	if minutes, ok := Minutes(durationSeconds); ok {
		rec.DurationMinutes = &minutes
	}
	return rec
}

// Minutes converts seconds to minutes rounded to one decimal.
func Minutes(seconds float64) (float64, bool) {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, false
	}
	return math.Round(seconds/60*10) / 10, true
}
