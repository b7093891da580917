package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"

	"fieldscribe/internal/document"
	"fieldscribe/internal/fileutil"
	"fieldscribe/internal/ledger"
	"fieldscribe/internal/logging"
	"fieldscribe/internal/recording"
	"fieldscribe/internal/services"
	"fieldscribe/internal/storage"
	"fieldscribe/internal/textutil"
	"fieldscribe/internal/vocabulary"
)

type outcome int

const (
	outcomeProcessed outcome = iota
	// outcomeUploadFailed means transcribed and recorded, but the
	// per-recording document could not be written.
	outcomeUploadFailed
	outcomeDuplicate
	outcomeSkipped
	outcomeFailed
)

type candidate struct {
	object      storage.Object
	captureDate string
	dateSource  recording.DateSource
	// fingerprint is empty until the audio is fetched when the scheme hashes content.
	fingerprint string
}

// batch is the single-writer state of one run.
type batch struct {
	ledger     *ledger.Ledger
	vocab      *vocabulary.Vocabulary
	vocabStore *vocabulary.Store
	records    []recording.Record
}

// RecordingPath is where the standalone document for one recording is written:
// <prefix>/<date>/<Label_With_Underscores>_<date>.md.
func RecordingPath(prefix, date, label string) string {
	return storage.Join(prefix, date, textutil.LabelSlug(label)+"_"+date+".md")
}

func (r *Runner) discover(ctx context.Context, logger *slog.Logger, led *ledger.Ledger, summary *Summary) ([]candidate, error) {
	objects, err := r.store.List(ctx, r.cfg.Storage.SourcePrefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.cfg.Storage.SourcePrefix, err)
	}

	now := r.now()
	out := make([]candidate, 0, len(objects))
	for _, obj := range objects {
		if !recording.IsSupported(obj.Name) {
			summary.Unsupported++
			continue
		}
		summary.Listed++
		date, source := recording.CaptureDate(obj.Name, obj.ModifiedTime, now)
		c := candidate{object: obj, captureDate: date, dateSource: source}

		if !r.fingerprinter.NeedsContent() {
			fp, err := r.fingerprinter.Fingerprint(obj, nil)
			if err != nil {
				logging.WarnWithContext(logger, "cannot fingerprint recording; skipping", "fingerprint_failed",
					logging.String(logging.FieldRecording, obj.Name),
					logging.Error(err),
					logging.String(logging.FieldImpact, "recording is not processed"),
				)
				summary.Skipped++
				continue
			}
			if led.IsProcessed(fp) {
				summary.AlreadyProcessed++
				continue
			}
			c.fingerprint = fp
		}
		out = append(out, c)
	}
	return out, nil
}

// process handles one recording. A non-nil error aborts the batch.
func (r *Runner) process(ctx context.Context, c candidate, state *batch) (outcome, error) {
	name := c.object.Name
	ctx = logging.WithRecording(ctx, name)
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldCaptureDate, c.captureDate),
	)

	data, err := r.store.Get(ctx, c.object.Path)
	if err != nil {
		logging.WarnWithContext(logger, "download failed; recording skipped", "recording_download_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check storage access; the recording is retried next run"),
			logging.String(logging.FieldImpact, "recording is not processed this run"),
		)
		return outcomeSkipped, nil
	}

	fp := c.fingerprint
	if fp == "" {
		fp, err = r.fingerprinter.Fingerprint(c.object, data)
		if err != nil {
			logging.WarnWithContext(logger, "cannot fingerprint recording; skipping", "fingerprint_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "recording is not processed"),
			)
			return outcomeSkipped, nil
		}
	}
	// Identical content may appear twice in one listing.
	if state.ledger.IsProcessed(fp) {
		logger.Debug("recording already processed", logging.String(logging.FieldFingerprint, fp))
		return outcomeDuplicate, nil
	}
	logger = logger.With(logging.String(logging.FieldFingerprint, fp))

	staged, err := fileutil.StageFile(r.cfg.Paths.WorkDir, name, data)
	if err != nil {
		return outcomeFailed, fmt.Errorf("stage %s: %w", name, err)
	}
	defer func() {
		if err := os.Remove(staged); err != nil && !os.IsNotExist(err) {
			logger.Debug("failed to remove staged recording", logging.Error(err))
		}
	}()

	seconds := r.probeDuration(ctx, logger, staged)

	logger.Info("transcribing recording",
		logging.String("transcriber", r.transcriber.Name()),
		logging.String("date_source", string(c.dateSource)),
		logging.String(logging.FieldEventType, "transcription_started"),
	)
	result, err := r.transcriber.Transcribe(ctx, staged)
	if err != nil {
		logging.ErrorWithContext(logger, "transcription failed; stopping batch", "transcription_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
			logging.String(logging.FieldImpact, "remaining recordings stay pending for the next run"),
		)
		return outcomeFailed, fmt.Errorf("transcribe %s: %w", name, err)
	}

	label := r.extractor.Extract(result.Text, state.vocab)
	rec := recording.NewRecord(name, c.captureDate, seconds, label, result.Text)
	state.records = append(state.records, rec)
	logger = logger.With(logging.String(logging.FieldLabel, label))

	out := outcomeProcessed
	docPath := RecordingPath(r.cfg.Storage.OutputPrefix, rec.CaptureDate, label)
	doc := document.Recording(rec, document.RecordingOptions{Title: r.cfg.Output.RecordingTitle})
	if err := r.store.Put(ctx, docPath, doc, storage.ContentTypeMarkdown); err != nil {
		logging.WarnWithContext(logger, "failed to write recording document", "recording_upload_failed",
			logging.Error(err),
			logging.String("path", docPath),
			logging.String(logging.FieldImpact, "transcript is still included in the compiled document"),
		)
		out = outcomeUploadFailed
	}

	entry := ledger.Entry{SourceName: name, Label: label, CaptureDate: rec.CaptureDate}
	if r.cfg.Ledger.KeepTranscript {
		entry.Text = rec.Text
	}
	if err := state.ledger.MarkProcessed(fp, entry); err != nil {
		return outcomeFailed, fmt.Errorf("record %s in ledger: %w", name, err)
	}
	if r.cfg.Ledger.CheckpointEachItem {
		r.checkpoint(ctx, logger, state)
	}

	logger.Info("recording processed",
		logging.String("document", path.Base(docPath)),
		logging.Int("characters", len(rec.Text)),
		logging.String(logging.FieldEventType, "recording_processed"),
	)
	return out, nil
}

func (r *Runner) probeDuration(ctx context.Context, logger *slog.Logger, staged string) float64 {
	seconds, ok, err := r.prober.Duration(ctx, staged)
	if err != nil {
		logging.WarnWithContext(logger, "duration lookup failed", "duration_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install ffprobe (fieldscribe status)"),
			logging.String(logging.FieldImpact, "documents show an unknown duration"),
		)
		return 0
	}
	if !ok {
		return 0
	}
	return seconds
}

// checkpoint persists the ledger and vocabulary after each recording so a
// crash later in the batch does not redo finished work.
func (r *Runner) checkpoint(ctx context.Context, logger *slog.Logger, state *batch) {
	if err := state.ledger.Save(ctx); err != nil {
		logging.WarnWithContext(logger, "ledger checkpoint failed", "ledger_checkpoint_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "progress is saved at the end of the run instead"),
		)
	}
	if err := state.vocabStore.Save(ctx, state.vocab); err != nil {
		logging.WarnWithContext(logger, "vocabulary checkpoint failed", "vocabulary_checkpoint_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "label counts are saved at the end of the run instead"),
		)
	}
}
