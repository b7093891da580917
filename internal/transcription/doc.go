// Package transcription selects a speech-to-text engine from configuration
// and adapts it to a single Transcriber interface the pipeline depends on.
package transcription
