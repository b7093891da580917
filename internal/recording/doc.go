// Package recording resolves the facts fieldscribe needs about a source audio
// object before and after transcription: whether its extension is supported,
// which calendar day it belongs to, the fingerprint used for deduplication,
// and the immutable Record assembled once the transcript and label are known.
package recording
