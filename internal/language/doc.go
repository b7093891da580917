// Package language normalizes the transcription language setting.
//
// Operators may write "es", "spa", "Spanish" or "español"; transcription
// backends want ISO 639-1 codes. Names are matched against the English and
// native display names from golang.org/x/text, ignoring case and accents.
package language
