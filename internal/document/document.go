// Package document builds the Markdown files fieldscribe writes: one per
// recording and one compiled document per capture date.
//
// A Builder either starts empty or from the bytes of an existing document.
// Existing bytes are emitted unchanged; new blocks only ever follow them.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"fieldscribe/internal/recording"
)

// Separator is the rule written before material appended to an existing document.
const Separator = "──────────────────────────────"

// Builder accumulates Markdown blocks.
type Builder struct {
	buf      bytes.Buffer
	prefixed int
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

// FromExisting returns a builder whose output begins with prev byte for byte.
func FromExisting(prev []byte) *Builder {
	b := &Builder{}
	b.buf.Write(prev)
	b.prefixed = len(prev)
	return b
}

// Prefix returns the length of the preserved prefix.
func (b *Builder) Prefix() int { return b.prefixed }

// startBlock makes sure the next block begins after a blank line.
func (b *Builder) startBlock() {
	data := b.buf.Bytes()
	switch {
	case len(data) == 0:
	case bytes.HasSuffix(data, []byte("\n\n")):
	case bytes.HasSuffix(data, []byte("\n")):
		b.buf.WriteByte('\n')
	default:
		b.buf.WriteString("\n\n")
	}
}

// Heading writes an ATX heading; level is clamped to 1..6.
func (b *Builder) Heading(level int, text string) {
	level = min(max(level, 1), 6)
	b.startBlock()
	b.buf.WriteString(strings.Repeat("#", level))
	b.buf.WriteByte(' ')
	b.buf.WriteString(singleLine(text))
	b.buf.WriteByte('\n')
}

// Paragraph writes text verbatim followed by a line break. Empty text is skipped.
func (b *Builder) Paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.startBlock()
	b.buf.WriteString(text)
	b.buf.WriteByte('\n')
}

// Separator writes the append separator rule.
func (b *Builder) Separator() {
	b.Paragraph(Separator)
}

// Bytes returns the rendered document.
func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

func singleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// RecordingOptions controls the per-recording document header.
type RecordingOptions struct {
	Title string
}

// Recording renders the standalone document for one transcript.
func Recording(rec recording.Record, opts RecordingOptions) []byte {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Transcripción"
	}
	b := New()
	b.Heading(1, fmt.Sprintf("%s: %s", title, rec.Label))
	b.Paragraph("Fecha: " + rec.CaptureDate)
	b.Paragraph("Duración: " + FormatMinutes(rec.DurationMinutes))
	b.Paragraph("Archivo original: " + rec.SourceName)
	b.Heading(2, "Transcripción completa")
	b.Paragraph(rec.Text)
	return b.Bytes()
}

// FormatMinutes renders a nullable duration for display.
func FormatMinutes(minutes *float64) string {
	if minutes == nil {
		return "desconocida"
	}
	return fmt.Sprintf("%.1f min", *minutes)
}
