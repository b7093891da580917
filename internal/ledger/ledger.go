// Package ledger records which recordings have already been processed.
//
// The ledger is a single JSON document keyed by fingerprint. It is loaded once
// per run, consulted before any work is done on a recording, mutated only
// after the recording is fully processed, and saved back by full overwrite.
// The document shape matches ledgers written by earlier deployments:
//
//	{"procesados": {"<fingerprint>": {"nombre": ..., "campo": ..., "fecha": ..., "texto": ...}}}
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"fieldscribe/internal/logging"
	"fieldscribe/internal/storage"
)

// Entry is the minimal metadata kept for a processed recording.
type Entry struct {
	SourceName  string `json:"nombre"`
	Label       string `json:"campo"`
	CaptureDate string `json:"fecha"`
	Text        string `json:"texto,omitempty"`
}

type document struct {
	Processed map[string]Entry `json:"procesados"`
}

// Record pairs a fingerprint with its entry for listing.
type Record struct {
	Fingerprint string
	Entry
}

// Ledger is the in-memory view of the processed-recordings document.
type Ledger struct {
	backend storage.Backend
	path    string
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]Entry
}

// New binds a ledger to the document at path. Call Load before use.
func New(backend storage.Backend, path string, logger *slog.Logger) *Ledger {
	return &Ledger{
		backend: backend,
		path:    path,
		logger:  logging.NewComponentLogger(logger, "ledger"),
		entries: make(map[string]Entry),
	}
}

// Path returns the document location within the backend.
func (l *Ledger) Path() string { return l.path }

// Load replaces the in-memory state with the stored document. A missing,
// empty or unparseable document yields an empty ledger; parse failures are
// logged because every previously processed recording will be redone.
func (l *Ledger) Load(ctx context.Context) error {
	data, err := l.backend.Get(ctx, l.path)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load ledger: %w", err)
	}

	entries := make(map[string]Entry)
	if len(bytes.TrimSpace(data)) > 0 {
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			logging.WarnWithContext(l.logger, "ledger document unreadable; starting empty", "ledger_load_failed",
				logging.String("path", l.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "restore the ledger from backup before the next run"),
				logging.String(logging.FieldImpact, "previously processed recordings will be transcribed again"),
			)
		} else if doc.Processed != nil {
			entries = doc.Processed
		}
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	l.logger.Debug("ledger loaded", logging.Int("entries", len(entries)))
	return nil
}

// Save overwrites the stored document with the in-memory state.
func (l *Ledger) Save(ctx context.Context) error {
	l.mu.RLock()
	doc := document{Processed: make(map[string]Entry, len(l.entries))}
	for fp, entry := range l.entries {
		doc.Processed[fp] = entry
	}
	l.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := l.backend.Put(ctx, l.path, data, storage.ContentTypeJSON); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// IsProcessed reports whether fingerprint has an entry.
func (l *Ledger) IsProcessed(fingerprint string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[fingerprint]
	return ok
}

// MarkProcessed inserts or overwrites the entry for fingerprint. The change
// is not durable until Save.
func (l *Ledger) MarkProcessed(fingerprint string, entry Entry) error {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return errors.New("ledger: fingerprint cannot be empty")
	}
	l.mu.Lock()
	l.entries[fingerprint] = entry
	l.mu.Unlock()
	return nil
}

// Lookup returns the entry for fingerprint.
func (l *Ledger) Lookup(fingerprint string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[fingerprint]
	return entry, ok
}

// Len returns the number of processed recordings.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Records returns every entry ordered by capture date, then source name.
func (l *Ledger) Records() []Record {
	l.mu.RLock()
	out := make([]Record, 0, len(l.entries))
	for fp, entry := range l.entries {
		out = append(out, Record{Fingerprint: fp, Entry: entry})
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CaptureDate != out[j].CaptureDate {
			return out[i].CaptureDate < out[j].CaptureDate
		}
		if out[i].SourceName != out[j].SourceName {
			return out[i].SourceName < out[j].SourceName
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	return out
}
