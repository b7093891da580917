// Package openai posts recordings to an OpenAI-compatible
// /audio/transcriptions endpoint and returns the transcript text.
//
// Any server that speaks the same multipart contract (faster-whisper-server,
// LocalAI, the hosted API) can be targeted through Config.BaseURL.
package openai
