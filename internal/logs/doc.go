// Package logs reads the fieldscribe log file for the `fieldscribe logs`
// command.
//
// Reads are bounded: a negative offset returns the last N lines, a
// non-negative one returns everything written since that offset, and follow
// mode polls until new lines arrive or the wait elapses. An optional
// case-insensitive filter drops lines that do not mention a recording, label
// or event type of interest.
package logs
