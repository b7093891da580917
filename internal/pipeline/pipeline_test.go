package pipeline_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"fieldscribe/internal/compile"
	"fieldscribe/internal/config"
	"fieldscribe/internal/notifications"
	"fieldscribe/internal/pipeline"
	"fieldscribe/internal/recording"
	"fieldscribe/internal/runlock"
	"fieldscribe/internal/testsupport"
	"fieldscribe/internal/transcription"
)

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local)

// fakeTranscriber maps staged audio bytes to transcripts.
type fakeTranscriber struct {
	mu      sync.Mutex
	texts   map[string]string
	fail    map[string]error
	calls   []string
	onCall  func()
	unknown string
}

func newFakeTranscriber(texts map[string]string) *fakeTranscriber {
	return &fakeTranscriber{texts: texts, fail: map[string]error{}}
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (transcription.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transcription.Result{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	content := string(data)
	f.calls = append(f.calls, content)
	if f.onCall != nil {
		f.onCall()
	}
	if err := f.fail[content]; err != nil {
		return transcription.Result{}, err
	}
	if text, ok := f.texts[content]; ok {
		return transcription.Result{Text: text}, nil
	}
	return transcription.Result{Text: f.unknown}, nil
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixedProber struct{ seconds float64 }

func (p fixedProber) Duration(context.Context, string) (float64, bool, error) {
	return p.seconds, p.seconds > 0, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []notifications.Summary
	errs      []error
}

func (n *recordingNotifier) NotifyRunCompleted(_ context.Context, s notifications.Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, s)
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, err error, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

type harness struct {
	cfg         *config.Config
	store       *testsupport.MemoryStore
	transcriber *fakeTranscriber
	notifier    *recordingNotifier
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &harness{
		cfg:   cfg,
		store: testsupport.NewMemoryStore(),
		transcriber: newFakeTranscriber(map[string]string{
			"audio-a": "Estamos en el campo Norte revisando la siembra.",
			"audio-b": "Hoy visitamos el lote Sur con Roberto.",
			"audio-c": "Volvimos al campo Norte para medir humedad.",
		}),
		notifier: &recordingNotifier{},
	}
}

func (h *harness) run(t *testing.T, ctx context.Context, extra ...pipeline.Option) (pipeline.Summary, error) {
	t.Helper()
	opts := append([]pipeline.Option{
		pipeline.WithProber(fixedProber{seconds: 90}),
		pipeline.WithNotifier(h.notifier),
		pipeline.WithClock(func() time.Time { return fixedNow }),
		pipeline.WithoutPreflight(),
	}, extra...)
	runner, err := pipeline.New(h.cfg, h.store, h.transcriber, nil, opts...)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return runner.Run(ctx)
}

func (h *harness) seed(name, content string, modified time.Time) {
	h.store.Seed(h.cfg.Storage.SourcePrefix+"/"+name, []byte(content), modified)
}

func (h *harness) mustContain(t *testing.T, path string, want ...string) string {
	t.Helper()
	body, ok := h.store.Contents(path)
	if !ok {
		t.Fatalf("expected %s to exist; have %v", path, h.store.Paths())
	}
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("%s missing %q:\n%s", path, w, body)
		}
	}
	return body
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestRunProcessesRecordingsOnce(t *testing.T) {
	h := newHarness(t)
	h.seed("2024-03-05_visita.mp3", "audio-a", time.Date(2024, 3, 7, 8, 0, 0, 0, time.Local))
	h.seed("grabacion.M4A", "audio-b", time.Date(2024, 3, 6, 10, 0, 0, 0, time.Local))
	h.seed("notas.txt", "not audio", time.Date(2024, 3, 6, 10, 0, 0, 0, time.Local))

	summary, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 2 || summary.Unsupported != 1 || summary.Listed != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}

	out := h.cfg.Storage.OutputPrefix
	h.mustContain(t, pipeline.RecordingPath(out, "2024-03-05", "Norte"),
		"# Transcripción: Norte", "Fecha: 2024-03-05", "Duración: 1.5 min", "Archivo original: 2024-03-05_visita.mp3")
	h.mustContain(t, pipeline.RecordingPath(out, "2024-03-06", "Sur"), "Archivo original: grabacion.M4A")
	firstCompiled := h.mustContain(t, compile.CompiledPath(out, "2024-03-05"), "## Norte", "Actualizado al 2024-03-10")
	h.mustContain(t, compile.CompiledPath(out, "2024-03-06"), "## Sur")
	h.mustContain(t, h.cfg.Storage.LedgerPath, `"procesados"`, md5Hex("audio-a"), md5Hex("audio-b"), `"campo": "Norte"`)
	h.mustContain(t, h.cfg.Storage.VocabularyPath, `"Norte": 1`, `"Sur": 1`)

	if len(h.notifier.summaries) != 1 || len(h.notifier.summaries[0].Dates) != 2 {
		t.Fatalf("unexpected notifications %+v", h.notifier.summaries)
	}

	again, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if again.Processed != 0 || again.AlreadyProcessed != 2 {
		t.Fatalf("expected everything already processed, got %+v", again)
	}
	if h.transcriber.callCount() != 2 {
		t.Fatalf("expected no new transcriptions, got %d calls", h.transcriber.callCount())
	}
	if body, _ := h.store.Contents(compile.CompiledPath(out, "2024-03-05")); body != firstCompiled {
		t.Fatal("compiled document changed on an idle run")
	}
	if again.RunID == summary.RunID {
		t.Fatal("expected a fresh run id")
	}
}

func TestRunAppendsToCompiledDocument(t *testing.T) {
	h := newHarness(t)
	h.seed("2024-03-05_a.mp3", "audio-a", time.Time{})
	if _, err := h.run(t, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	path := compile.CompiledPath(h.cfg.Storage.OutputPrefix, "2024-03-05")
	before, _ := h.store.Contents(path)

	h.seed("2024-03-05_c.mp3", "audio-c", time.Time{})
	if _, err := h.run(t, context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	after := h.mustContain(t, path, "Nuevas transcripciones agregadas el 2024-03-10", "medir humedad")
	if !strings.HasPrefix(after, before) {
		t.Fatal("expected earlier content preserved byte for byte")
	}
	h.mustContain(t, h.cfg.Storage.VocabularyPath, `"Norte": 2`)
}

func TestRunSkipsFailedDownload(t *testing.T) {
	h := newHarness(t)
	h.seed("2024-03-05_a.mp3", "audio-a", time.Time{})
	h.seed("2024-03-05_b.mp3", "audio-b", time.Time{})
	source := h.cfg.Storage.SourcePrefix + "/2024-03-05_a.mp3"
	h.store.FailGet(source, errors.New("connection reset"))

	summary, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 || summary.Processed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	h.store.FailGet(source, nil)
	summary, err = h.run(t, context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Processed != 1 || summary.AlreadyProcessed != 1 {
		t.Fatalf("expected skipped recording retried, got %+v", summary)
	}
}

func TestTranscriptionFailureStopsBatchButPersists(t *testing.T) {
	h := newHarness(t)
	h.seed("2024-03-05_a.mp3", "audio-a", time.Time{})
	h.seed("2024-03-05_b.mp3", "audio-b", time.Time{})
	h.seed("2024-03-05_c.mp3", "audio-c", time.Time{})
	h.transcriber.fail["audio-b"] = errors.New("uvx exited 1")

	summary, err := h.run(t, context.Background())
	if err == nil || !strings.Contains(err.Error(), "uvx exited 1") {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if h.transcriber.callCount() != 2 {
		t.Fatalf("expected the batch to stop after the failure, got %d calls", h.transcriber.callCount())
	}
	ledgerBody := h.mustContain(t, h.cfg.Storage.LedgerPath, md5Hex("audio-a"))
	if strings.Contains(ledgerBody, md5Hex("audio-b")) {
		t.Fatal("failed recording must not be marked processed")
	}
	h.mustContain(t, compile.CompiledPath(h.cfg.Storage.OutputPrefix, "2024-03-05"), "revisando la siembra")
	if len(h.notifier.errs) != 1 {
		t.Fatalf("expected an error notification, got %v", h.notifier.errs)
	}

	delete(h.transcriber.fail, "audio-b")
	summary, err = h.run(t, context.Background())
	if err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	if summary.Processed != 2 || summary.AlreadyProcessed != 1 {
		t.Fatalf("expected remaining recordings processed on retry, got %+v", summary)
	}
}

func TestCheckpointsSaveLedgerBeforeCompile(t *testing.T) {
	h := newHarness(t, testsupport.WithCheckpoints(true))
	h.seed("2024-03-05_a.mp3", "audio-a", time.Time{})
	h.seed("2024-03-06_b.mp3", "audio-b", time.Time{})
	compiled := compile.CompiledPath(h.cfg.Storage.OutputPrefix, "2024-03-05")
	h.store.FailPut(compiled, errors.New("bucket unavailable"))

	if _, err := h.run(t, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.store.PutCalls(h.cfg.Storage.LedgerPath); got != 3 {
		t.Fatalf("expected one ledger save per recording plus the final save, got %d", got)
	}
	h.mustContain(t, h.cfg.Storage.LedgerPath, md5Hex("audio-a"), md5Hex("audio-b"))
	if _, ok := h.store.Contents(compiled); ok {
		t.Fatalf("%s should not exist after a failed write", compiled)
	}
	h.mustContain(t, compile.CompiledPath(h.cfg.Storage.OutputPrefix, "2024-03-06"), "lote Sur")
}

func TestWithoutCheckpointsLedgerIsSavedOnce(t *testing.T) {
	h := newHarness(t, testsupport.WithCheckpoints(false))
	h.seed("2024-03-05_a.mp3", "audio-a", time.Time{})
	h.seed("2024-03-05_b.mp3", "audio-b", time.Time{})

	summary, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := h.store.PutCalls(h.cfg.Storage.LedgerPath); got != 1 {
		t.Fatalf("expected a single ledger save after compilation, got %d", got)
	}
	h.mustContain(t, h.cfg.Storage.LedgerPath, md5Hex("audio-a"), md5Hex("audio-b"))
	h.mustContain(t, compile.CompiledPath(h.cfg.Storage.OutputPrefix, "2024-03-05"), "revisando la siembra", "lote Sur")
}

func TestCancelledRunPersistsCompletedWork(t *testing.T) {
	h := newHarness(t)
	h.seed("2024-03-05_a.mp3", "audio-a", time.Time{})
	h.seed("2024-03-05_b.mp3", "audio-b", time.Time{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.transcriber.onCall = cancel

	summary, err := h.run(t, ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("expected the in-flight recording to finish, got %+v", summary)
	}
	h.mustContain(t, h.cfg.Storage.LedgerPath, md5Hex("audio-a"))
	h.mustContain(t, compile.CompiledPath(h.cfg.Storage.OutputPrefix, "2024-03-05"), "## Norte")
	if len(h.notifier.errs) != 0 {
		t.Fatalf("cancellation should not be reported as an error: %v", h.notifier.errs)
	}
}

func TestDuplicateContentProcessedOnce(t *testing.T) {
	h := newHarness(t)
	h.seed("2024-03-05_a.mp3", "audio-a", time.Time{})
	h.seed("2024-03-05_copy.mp3", "audio-a", time.Time{})

	summary, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.AlreadyProcessed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestMetadataSchemeSkipsDownloadOfKnownRecordings(t *testing.T) {
	h := newHarness(t, testsupport.WithFingerprint(config.FingerprintMetadata))
	modified := time.Date(2024, 3, 5, 18, 30, 0, 0, time.UTC)
	h.seed("2024-03-05_a.mp3", "audio-a", modified)
	source := h.cfg.Storage.SourcePrefix + "/2024-03-05_a.mp3"

	if _, err := h.run(t, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	h.mustContain(t, h.cfg.Storage.LedgerPath, source+"@2024-03-05T18:30:00Z")
	if _, err := h.run(t, context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := h.store.GetCalls(source); got != 1 {
		t.Fatalf("expected a single download, got %d", got)
	}

	// A modified recording is new under this scheme.
	h.seed("2024-03-05_a.mp3", "audio-c", modified.Add(time.Hour))
	summary, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("expected modified recording reprocessed, got %+v", summary)
	}
}

func TestRecordingUploadFailureContinues(t *testing.T) {
	h := newHarness(t)
	h.seed("2024-03-05_a.mp3", "audio-a", time.Time{})
	h.seed("2024-03-06_b.mp3", "audio-b", time.Time{})
	h.store.FailPut(pipeline.RecordingPath(h.cfg.Storage.OutputPrefix, "2024-03-05", "Norte"), errors.New("quota exceeded"))

	summary, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 2 || summary.UploadFailed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	h.mustContain(t, h.cfg.Storage.LedgerPath, md5Hex("audio-a"), md5Hex("audio-b"))
	h.mustContain(t, compile.CompiledPath(h.cfg.Storage.OutputPrefix, "2024-03-05"), "## Norte")
}

func TestUnidentifiedTranscriptUsesSentinel(t *testing.T) {
	h := newHarness(t)
	h.seed("2024-03-05_ruido.wav", "noise", time.Time{})

	summary, err := h.run(t, context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Records) != 1 || summary.Records[0].Label != "Sin identificar" {
		t.Fatalf("unexpected records %+v", summary.Records)
	}
	h.mustContain(t, pipeline.RecordingPath(h.cfg.Storage.OutputPrefix, "2024-03-05", "Sin identificar"), "Sin identificar")
	if body, _ := h.store.Contents(h.cfg.Storage.VocabularyPath); strings.Contains(body, "Sin identificar") {
		t.Fatal("sentinel must not enter the vocabulary")
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	h := newHarness(t)
	lock, err := runlock.Acquire(h.cfg.LockPath())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	if _, err := h.run(t, context.Background()); !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestPreflightFailureStopsRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewMemoryStore()
	store.Seed(cfg.Storage.SourcePrefix+"/2024-03-05_a.mp3", []byte("audio-a"), time.Time{})
	tr := newFakeTranscriber(nil)

	runner, err := pipeline.New(cfg, store, tr, nil, pipeline.WithNotifier(&recordingNotifier{}))
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	_, err = runner.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "preflight checks failed") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
	if tr.callCount() != 0 {
		t.Fatal("expected no transcription after failed preflight")
	}
}

func TestListFailureIsReturned(t *testing.T) {
	h := newHarness(t)
	h.store.FailList(errors.New("forbidden"))
	if _, err := h.run(t, context.Background()); err == nil || !strings.Contains(err.Error(), "forbidden") {
		t.Fatalf("expected list error, got %v", err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := pipeline.New(cfg, nil, newFakeTranscriber(nil), nil); err == nil {
		t.Fatal("expected error without storage")
	}
	cfg.Ledger.Fingerprint = "sha1"
	if _, err := pipeline.New(cfg, testsupport.NewMemoryStore(), newFakeTranscriber(nil), nil); err == nil {
		t.Fatal("expected error for unknown fingerprint scheme")
	}
}

func TestSummaryNotification(t *testing.T) {
	summary := pipeline.Summary{
		RunID:     "run-1",
		Processed: 2,
		Compiled: []compile.Result{
			{Date: "2024-03-05", Path: "out/2024-03-05/Compiled_2024-03-05.md", Records: 2},
			{Date: "2024-03-06", Path: "out/2024-03-06/Compiled_2024-03-06.md", Err: errors.New("boom")},
		},
	}
	summary.Records = append(summary.Records, recordAt("2024-03-05"), recordAt("2024-03-05"))

	got := summary.Notification("out")
	if len(got.Dates) != 1 {
		t.Fatalf("expected failed dates excluded, got %+v", got.Dates)
	}
	day := got.Dates[0]
	if day.Folder != "out/2024-03-05" || day.Recordings != 2 || day.CompiledPath != "out/2024-03-05/Compiled_2024-03-05.md" {
		t.Fatalf("unexpected date summary %+v", day)
	}
}

func recordAt(date string) recording.Record {
	return recording.NewRecord("a.mp3", date, 60, "Norte", "texto")
}
