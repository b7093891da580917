// Package ffprobe reads container metadata for staged recordings.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Prober: runs ffprobe (or a test runner) and decodes the JSON payload
//
// The pipeline only needs a duration; DurationSeconds falls back to the
// first audio stream when the container omits one and reports false when
// neither carries a usable value.
package ffprobe
