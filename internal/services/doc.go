// Package services holds the adapters for external collaborators (WhisperX,
// OpenAI-compatible transcription) and the error markers they share.
//
// Adapters wrap failures with Wrap so callers can classify them with
// errors.Is and attach an operator hint via ErrorHint.
package services
