// Package pipeline runs one ingestion pass: list the source prefix, skip
// recordings the ledger already knows, transcribe and label the rest, write
// per-recording and per-date documents, then persist the ledger and the
// vocabulary and notify.
//
// Recordings are processed one at a time. A failed download skips that
// recording until the next run. A failed transcription stops the batch, but
// everything finished before it is still compiled and persisted, and so is
// everything finished before a context cancellation.
package pipeline
