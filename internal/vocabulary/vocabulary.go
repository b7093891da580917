// Package vocabulary holds the frequency table of subject labels recognized in
// earlier runs.
//
// Counts only grow. Iteration follows insertion order, which is also the
// order written to and read back from JSON, so label matching against the
// vocabulary is deterministic across runs.
package vocabulary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"fieldscribe/internal/logging"
	"fieldscribe/internal/storage"
)

// Vocabulary maps title-cased labels to how often each was chosen.
type Vocabulary struct {
	counts *orderedmap.OrderedMap[string, int]
}

// Entry is one label and its count.
type Entry struct {
	Label string
	Count int
}

// New returns an empty vocabulary.
func New() *Vocabulary {
	return &Vocabulary{counts: orderedmap.New[string, int]()}
}

// Count returns the stored count for label, or zero.
func (v *Vocabulary) Count(label string) int {
	n, _ := v.counts.Get(label)
	return n
}

// Increment adds one to label's count, appending the label when unseen.
func (v *Vocabulary) Increment(label string) {
	n, _ := v.counts.Get(label)
	v.counts.Set(label, n+1)
}

// Len returns the number of distinct labels.
func (v *Vocabulary) Len() int { return v.counts.Len() }

// Labels returns every label in insertion order.
func (v *Vocabulary) Labels() []string {
	out := make([]string, 0, v.counts.Len())
	for pair := v.counts.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Entries returns every label with its count in insertion order.
func (v *Vocabulary) Entries() []Entry {
	out := make([]Entry, 0, v.counts.Len())
	for pair := v.counts.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Entry{Label: pair.Key, Count: pair.Value})
	}
	return out
}

// Clone returns an independent copy. Dry runs use it to avoid mutating the
// persisted table.
func (v *Vocabulary) Clone() *Vocabulary {
	clone := New()
	for pair := v.counts.Oldest(); pair != nil; pair = pair.Next() {
		clone.counts.Set(pair.Key, pair.Value)
	}
	return clone
}

// MarshalJSON encodes the vocabulary as an object in insertion order.
func (v *Vocabulary) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.counts)
}

// UnmarshalJSON replaces the vocabulary with the decoded object.
func (v *Vocabulary) UnmarshalJSON(data []byte) error {
	counts := orderedmap.New[string, int]()
	if err := json.Unmarshal(data, counts); err != nil {
		return err
	}
	v.counts = counts
	return nil
}

// Store loads and saves the vocabulary document through a storage backend.
type Store struct {
	backend storage.Backend
	path    string
	logger  *slog.Logger
}

// NewStore binds the vocabulary document at path.
func NewStore(backend storage.Backend, path string, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		path:    path,
		logger:  logging.NewComponentLogger(logger, "vocabulary"),
	}
}

// Load reads the vocabulary. A missing, empty or unparseable document yields
// an empty vocabulary; parse failures are logged. Only transport errors are
// returned.
func (s *Store) Load(ctx context.Context) (*Vocabulary, error) {
	data, err := s.backend.Get(ctx, s.path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return New(), nil
		}
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil
	}

	vocab := New()
	if err := json.Unmarshal(data, vocab); err != nil {
		logging.WarnWithContext(s.logger, "vocabulary document unreadable; starting empty", "vocabulary_load_failed",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "repair or remove the vocabulary document"),
			logging.String(logging.FieldImpact, "previously learned labels are forgotten and will be overwritten on save"),
		)
		return New(), nil
	}
	return vocab, nil
}

// Save overwrites the vocabulary document.
func (s *Store) Save(ctx context.Context, vocab *Vocabulary) error {
	if vocab == nil {
		vocab = New()
	}
	data, err := json.MarshalIndent(vocab, "", "  ")
	if err != nil {
		return fmt.Errorf("encode vocabulary: %w", err)
	}
	if err := s.backend.Put(ctx, s.path, data, storage.ContentTypeJSON); err != nil {
		return fmt.Errorf("save vocabulary: %w", err)
	}
	s.logger.Debug("vocabulary saved", logging.Int("labels", vocab.Len()))
	return nil
}
