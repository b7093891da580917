package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldscribe/internal/compile"
	"fieldscribe/internal/config"
	"fieldscribe/internal/deps"
	"fieldscribe/internal/labels"
	"fieldscribe/internal/ledger"
	"fieldscribe/internal/logging"
	"fieldscribe/internal/media/ffprobe"
	"fieldscribe/internal/notifications"
	"fieldscribe/internal/preflight"
	"fieldscribe/internal/recording"
	"fieldscribe/internal/runlock"
	"fieldscribe/internal/storage"
	"fieldscribe/internal/transcription"
	"fieldscribe/internal/vocabulary"
)

// DurationProber reports the length of a local audio file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, bool, error)
}

// Runner wires the pipeline's collaborators together.
type Runner struct {
	cfg           *config.Config
	store         storage.Backend
	transcriber   transcription.Transcriber
	prober        DurationProber
	notifier      notifications.Service
	extractor     *labels.Extractor
	fingerprinter recording.Fingerprinter
	logger        *slog.Logger
	now           func() time.Time
	preflight     bool
}

// Option customizes a Runner.
type Option func(*Runner)

// WithProber replaces the ffprobe-backed duration prober.
func WithProber(p DurationProber) Option {
	return func(r *Runner) {
		if p != nil {
			r.prober = p
		}
	}
}

// WithNotifier replaces the configured notification service.
func WithNotifier(n notifications.Service) Option {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithClock overrides the processing clock.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithoutPreflight skips the readiness checks at the start of Run.
func WithoutPreflight() Option {
	return func(r *Runner) {
		r.preflight = false
	}
}

// New builds a runner over store using transcriber for speech-to-text.
func New(cfg *config.Config, store storage.Backend, transcriber transcription.Transcriber, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil || store == nil || transcriber == nil {
		return nil, errors.New("pipeline requires config, storage, and transcriber")
	}
	extractor, err := labels.New(cfg.Labels.Markers, cfg.Labels.Unidentified)
	if err != nil {
		return nil, fmt.Errorf("label extractor: %w", err)
	}
	fingerprinter, err := recording.NewFingerprinter(cfg.Ledger.Fingerprint)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		cfg:           cfg,
		store:         store,
		transcriber:   transcriber,
		prober:        ffprobe.New(deps.ResolveFFprobePath(cfg.FFprobeBinary())),
		notifier:      notifications.NewService(cfg),
		extractor:     extractor,
		fingerprinter: fingerprinter,
		logger:        logging.NewComponentLogger(logger, "pipeline"),
		now:           time.Now,
		preflight:     true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes one pass. The returned summary is populated even when an
// error is returned.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := r.now()
	summary := Summary{RunID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, r.logger)

	lock, err := runlock.Acquire(r.cfg.LockPath())
	if err != nil {
		return summary, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logging.WarnWithContext(logger, "failed to release run lock", "run_lock_release_failed",
				logging.Error(err),
				logging.String("lock", lock.Path()),
				logging.String(logging.FieldImpact, "a stale lock file remains; the next run still acquires it"),
			)
		}
	}()

	if r.preflight {
		if err := r.runPreflightChecks(ctx, logger); err != nil {
			return summary, err
		}
	}

	led := ledger.New(r.store, r.cfg.Storage.LedgerPath, logger)
	if err := led.Load(ctx); err != nil {
		return summary, err
	}
	vocabStore := vocabulary.NewStore(r.store, r.cfg.Storage.VocabularyPath, logger)
	vocab, err := vocabStore.Load(ctx)
	if err != nil {
		return summary, err
	}

	candidates, err := r.discover(ctx, logger, led, &summary)
	if err != nil {
		return summary, err
	}
	logger.Info("recordings discovered",
		logging.Int("listed", summary.Listed),
		logging.Int("pending", len(candidates)),
		logging.Int("already_processed", summary.AlreadyProcessed),
		logging.String("transcriber", r.transcriber.Name()),
		logging.String(logging.FieldEventType, "discovery_complete"),
	)

	state := &batch{ledger: led, vocab: vocab, vocabStore: vocabStore}
	var batchErr error
	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			logging.WarnWithContext(logger, "run cancelled; finishing completed recordings", "run_cancelled",
				logging.Int("remaining", len(candidates)-i),
				logging.String(logging.FieldImpact, "remaining recordings stay pending for the next run"),
			)
			batchErr = err
			break
		}
		out, err := r.process(ctx, cand, state)
		summary.count(out)
		if err != nil {
			batchErr = err
			break
		}
	}
	summary.Records = state.records

	// Completed work is persisted even when the run was cancelled.
	persistCtx := context.WithoutCancel(ctx)
	persistErr := r.finish(persistCtx, logger, state, &summary)

	summary.Duration = r.now().Sub(start)
	r.notify(persistCtx, logger, summary, batchErr)

	logger.Info("run finished",
		logging.Int("processed", summary.Processed),
		logging.Int("already_processed", summary.AlreadyProcessed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("upload_failed", summary.UploadFailed),
		logging.Int("failed", summary.Failed),
		logging.Int("compiled_documents", len(summary.Compiled)),
		logging.Duration("duration", summary.Duration),
		logging.String(logging.FieldEventType, "run_complete"),
	)
	return summary, errors.Join(batchErr, persistErr)
}

func (r *Runner) runPreflightChecks(ctx context.Context, logger *slog.Logger) error {
	var failures []string
	for _, res := range preflight.RunAll(ctx, r.cfg) {
		if res.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", res.Name),
				logging.String("detail", res.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", res.Name),
			logging.String("detail", res.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "run fieldscribe status and fix the reported issue"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", res.Name, res.Detail))
	}
	if len(failures) > 0 {
		return fmt.Errorf("preflight checks failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

// finish compiles the batch and persists ledger and vocabulary.
func (r *Runner) finish(ctx context.Context, logger *slog.Logger, state *batch, summary *Summary) error {
	var errs []error
	if len(state.records) > 0 {
		engine := compile.NewEngine(r.store, r.cfg.Storage.OutputPrefix, logger,
			compile.WithTitle(r.cfg.Output.Title),
			compile.WithClock(r.now),
		)
		results, err := engine.Compile(ctx, state.records)
		summary.Compiled = results
		if err != nil {
			// Per-date failures are logged by the engine and do not fail the run.
			logger.Debug("compile finished with errors", logging.Error(err))
		}
	}

	if err := state.ledger.Save(ctx); err != nil {
		logging.ErrorWithContext(logger, "failed to save ledger", "ledger_save_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "recordings from this run will be transcribed again"),
		)
		errs = append(errs, err)
	}
	if err := state.vocabStore.Save(ctx, state.vocab); err != nil {
		logging.ErrorWithContext(logger, "failed to save vocabulary", "vocabulary_save_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "label counts from this run are lost"),
		)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runner) notify(ctx context.Context, logger *slog.Logger, summary Summary, batchErr error) {
	if err := r.notifier.NotifyRunCompleted(ctx, summary.Notification(r.cfg.Storage.OutputPrefix)); err != nil {
		logging.WarnWithContext(logger, "run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications settings (fieldscribe test-notify)"),
			logging.String(logging.FieldImpact, "operators are not told about this run"),
		)
	}
	if batchErr == nil || errors.Is(batchErr, context.Canceled) {
		return
	}
	if err := r.notifier.NotifyError(ctx, batchErr, "transcription"); err != nil {
		logging.WarnWithContext(logger, "error notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications settings (fieldscribe test-notify)"),
			logging.String(logging.FieldImpact, "operators are not told about the failure"),
		)
	}
}
