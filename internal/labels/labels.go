// Package labels assigns a subject label to free-form transcript text.
//
// Candidates come from explicit markers ("campo Norte", "lote de Las Palmas")
// and from labels already present in the vocabulary. The most frequent
// candidate wins, ties going to the earliest. Without candidates the first
// capitalized word of four or more letters is used, and failing that the
// configured sentinel. Every label chosen by the first two steps is counted in
// the vocabulary; the sentinel is never counted.
package labels

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fieldscribe/internal/textutil"
	"fieldscribe/internal/vocabulary"
)

// DefaultUnidentified is returned when no label can be derived.
const DefaultUnidentified = "Sin identificar"

// fallbackMinLower is the number of lowercase letters that must follow the
// initial capital for a word to be used as a fallback label.
const fallbackMinLower = 3

// Source names which step produced a label.
type Source string

const (
	SourceCandidates   Source = "candidates"
	SourceCapitalized  Source = "capitalized"
	SourceUnidentified Source = "unidentified"
)

// Result describes one extraction.
type Result struct {
	Label      string
	Source     Source
	Candidates []string
}

// Extractor applies the heuristic. It is safe for concurrent use as long as
// callers do not share a vocabulary across goroutines.
type Extractor struct {
	markers      []*regexp.Regexp
	unidentified string
}

// New compiles one pattern per marker word. Markers match case-insensitively,
// only as whole words, and may be followed by the connector "de"; the captured
// label must be one or more capitalized words.
func New(markers []string, unidentified string) (*Extractor, error) {
	unidentified = strings.TrimSpace(unidentified)
	if unidentified == "" {
		unidentified = DefaultUnidentified
	}
	ex := &Extractor{unidentified: unidentified}
	for _, marker := range markers {
		marker = strings.TrimSpace(marker)
		if marker == "" {
			continue
		}
		pattern := `(?:^|[^\p{L}\p{N}_])(?i:` + regexp.QuoteMeta(marker) + `)\s+(?:(?i:de)\s+)?(\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)*)`
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile marker %q: %w", marker, err)
		}
		ex.markers = append(ex.markers, re)
	}
	return ex, nil
}

// Unidentified returns the sentinel label.
func (e *Extractor) Unidentified() string { return e.unidentified }

// Extract returns the label for text and updates vocab.
func (e *Extractor) Extract(text string, vocab *vocabulary.Vocabulary) string {
	return e.Analyze(text, vocab).Label
}

// Analyze runs the heuristic and reports how the label was reached. vocab is
// incremented for the chosen label unless the sentinel is returned. A nil
// vocab behaves as an empty, discarded one.
func (e *Extractor) Analyze(text string, vocab *vocabulary.Vocabulary) Result {
	if vocab == nil {
		vocab = vocabulary.New()
	}
	if strings.TrimSpace(text) == "" {
		return Result{Label: e.unidentified, Source: SourceUnidentified}
	}

	candidates := e.candidates(text, vocab)
	if len(candidates) > 0 {
		label := normalize(mostFrequent(candidates))
		if label != "" {
			vocab.Increment(label)
			return Result{Label: label, Source: SourceCandidates, Candidates: candidates}
		}
	}

	for _, word := range textutil.Words(text) {
		if textutil.IsCapitalized(word, fallbackMinLower) {
			label := normalize(word)
			vocab.Increment(label)
			return Result{Label: label, Source: SourceCapitalized, Candidates: candidates}
		}
	}

	return Result{Label: e.unidentified, Source: SourceUnidentified, Candidates: candidates}
}

func (e *Extractor) candidates(text string, vocab *vocabulary.Vocabulary) []string {
	var out []string
	for _, re := range e.markers {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			out = append(out, match[1])
		}
	}
	lowered := strings.ToLower(text)
	for _, known := range vocab.Labels() {
		if known == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(known)) {
			out = append(out, known)
		}
	}
	return out
}

// mostFrequent returns the candidate with the highest count, preferring the
// one seen first on ties.
func mostFrequent(candidates []string) string {
	counts := make(map[string]int, len(candidates))
	best, bestCount := "", 0
	for _, c := range candidates {
		counts[c]++
	}
	for _, c := range candidates {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

func normalize(label string) string {
	label = strings.Join(strings.Fields(label), " ")
	return cases.Title(language.Und).String(label)
}
