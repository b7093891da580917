// Package logging assembles structured slog loggers and formatting helpers used
// across fieldscribe.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so pipeline code can tag log lines with
// the run identifier and the recording being processed. Console output hoists
// the component and recording into a prefix; JSON output keeps every field.
//
// NewNop returns a discarding logger for tests and wiring code that cannot fail.
package logging
