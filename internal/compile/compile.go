// Package compile merges transcript records into the per-date compiled
// documents.
//
// Records are grouped by capture date. For each date the existing compiled
// document is fetched; new material is appended after a separator so prior
// runs' content survives byte for byte. Within a run, labels appear in the
// order first seen and entries under a label are ordered by capture date.
package compile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"fieldscribe/internal/document"
	"fieldscribe/internal/logging"
	"fieldscribe/internal/recording"
	"fieldscribe/internal/storage"
)

// DefaultTitle heads newly created compiled documents.
const DefaultTitle = "Compilado General de Transcripciones"

// Result reports what happened to one date's compiled document.
type Result struct {
	Date     string
	Path     string
	Records  int
	Appended bool
	Err      error
}

// Engine writes compiled documents through a storage backend.
type Engine struct {
	backend      storage.Backend
	outputPrefix string
	title        string
	now          func() time.Time
	logger       *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithTitle sets the heading of newly created documents.
func WithTitle(title string) Option {
	return func(e *Engine) {
		if title != "" {
			e.title = title
		}
	}
}

// WithClock overrides the source of the processing date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine constructs an Engine writing beneath outputPrefix.
func NewEngine(backend storage.Backend, outputPrefix string, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		backend:      backend,
		outputPrefix: outputPrefix,
		title:        DefaultTitle,
		now:          time.Now,
		logger:       logging.NewComponentLogger(logger, "compile"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DocumentPath returns the compiled document location for date.
func (e *Engine) DocumentPath(date string) string {
	return CompiledPath(e.outputPrefix, date)
}

// CompiledPath returns <prefix>/<date>/Compiled_<date>.md.
func CompiledPath(prefix, date string) string {
	return storage.Join(prefix, date, "Compiled_"+date+".md")
}

// Compile merges records into one document per capture date, ascending. A
// failure on one date is logged and reported in its Result; other dates are
// still written. The returned error joins every per-date failure.
func (e *Engine) Compile(ctx context.Context, records []recording.Record) ([]Result, error) {
	dates, byDate := GroupByDate(records)
	today := e.now().In(time.Local).Format(recording.DateLayout)

	results := make([]Result, 0, len(dates))
	var errs []error
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res := e.compileDate(ctx, date, byDate[date], today)
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("compile %s: %w", date, res.Err))
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (e *Engine) compileDate(ctx context.Context, date string, records []recording.Record, today string) Result {
	path := e.DocumentPath(date)
	res := Result{Date: date, Path: path, Records: len(records)}

	existing, err := e.backend.Get(ctx, path)
	switch {
	case err == nil:
		res.Appended = true
	case errors.Is(err, storage.ErrNotFound):
		existing = nil
	default:
		// Writing now would replace content we could not read.
		logging.ErrorWithContext(e.logger, "compiled document unreadable; skipping date", "compile_fetch_failed",
			logging.String(logging.FieldCaptureDate, date),
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check storage connectivity; the records stay in the ledger and per-recording documents"),
		)
		res.Err = err
		return res
	}

	data := Merge(existing, res.Appended, records, MergeOptions{Title: e.title, Today: today})
	if err := e.backend.Put(ctx, path, data, storage.ContentTypeMarkdown); err != nil {
		logging.ErrorWithContext(e.logger, "compiled document upload failed", "compile_upload_failed",
			logging.String(logging.FieldCaptureDate, date),
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check storage connectivity and permissions"),
		)
		res.Err = err
		return res
	}

	e.logger.Info("compiled document written",
		logging.String(logging.FieldCaptureDate, date),
		logging.String("path", path),
		logging.Int("records", len(records)),
		logging.Bool("appended", res.Appended),
	)
	return res
}

// MergeOptions carries the strings stamped into a compiled document.
type MergeOptions struct {
	Title string
	Today string
}

// Merge renders records onto existing. When found is true existing is kept
// byte for byte and followed by a separator and an "added on" marker;
// otherwise a new document with title and "updated as of" stamp is started.
func Merge(existing []byte, found bool, records []recording.Record, opts MergeOptions) []byte {
	var b *document.Builder
	if found {
		b = document.FromExisting(existing)
		b.Separator()
		b.Paragraph("Nuevas transcripciones agregadas el " + opts.Today)
	} else {
		title := opts.Title
		if title == "" {
			title = DefaultTitle
		}
		b = document.New()
		b.Heading(1, title)
		b.Paragraph("Actualizado al " + opts.Today)
	}

	labels, byLabel := GroupByLabel(records)
	for _, label := range labels {
		b.Heading(2, label)
		for _, rec := range byLabel[label] {
			b.Heading(3, fmt.Sprintf("Audio – %s (%s)", rec.CaptureDate, rec.SourceName))
			b.Paragraph(rec.Text)
		}
	}
	return b.Bytes()
}

// GroupByDate partitions records by capture date and returns the dates in
// ascending order.
func GroupByDate(records []recording.Record) ([]string, map[string][]recording.Record) {
	byDate := make(map[string][]recording.Record)
	for _, rec := range records {
		byDate[rec.CaptureDate] = append(byDate[rec.CaptureDate], rec)
	}
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, byDate
}

// GroupByLabel partitions records by label in first-seen order and sorts each
// group by capture date, keeping input order among equal dates.
func GroupByLabel(records []recording.Record) ([]string, map[string][]recording.Record) {
	var labels []string
	byLabel := make(map[string][]recording.Record)
	for _, rec := range records {
		if _, ok := byLabel[rec.Label]; !ok {
			labels = append(labels, rec.Label)
		}
		byLabel[rec.Label] = append(byLabel[rec.Label], rec)
	}
	for _, label := range labels {
		group := byLabel[label]
		sort.SliceStable(group, func(i, j int) bool { return group[i].CaptureDate < group[j].CaptureDate })
	}
	return labels, byLabel
}
