package compile_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fieldscribe/internal/compile"
	"fieldscribe/internal/logging"
	"fieldscribe/internal/recording"
	"fieldscribe/internal/testsupport"
)

func rec(name, date, label, text string) recording.Record {
	return recording.NewRecord(name, date, 120, label, text)
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 3, 7, 12, 0, 0, 0, time.Local) }
}

func TestGroupByLabelNorthSouthNorth(t *testing.T) {
	records := []recording.Record{
		rec("c.mp3", "2024-03-05", "Norte", "tercero"),
		rec("b.mp3", "2024-03-05", "Sur", "segundo"),
		rec("a.mp3", "2024-03-04", "Norte", "primero"),
	}
	labels, byLabel := compile.GroupByLabel(records)
	if strings.Join(labels, ",") != "Norte,Sur" {
		t.Fatalf("unexpected label order %v", labels)
	}
	north := byLabel["Norte"]
	if len(north) != 2 || north[0].Text != "primero" || north[1].Text != "tercero" {
		t.Fatalf("unexpected Norte group %+v", north)
	}
	if len(byLabel["Sur"]) != 1 {
		t.Fatalf("unexpected Sur group %+v", byLabel["Sur"])
	}
}

func TestGroupByLabelStableWithinDate(t *testing.T) {
	records := []recording.Record{
		rec("z.mp3", "2024-03-05", "Norte", "first"),
		rec("a.mp3", "2024-03-05", "Norte", "second"),
	}
	_, byLabel := compile.GroupByLabel(records)
	if byLabel["Norte"][0].Text != "first" {
		t.Fatal("expected input order for equal dates")
	}
}

func TestGroupByDateAscending(t *testing.T) {
	dates, byDate := compile.GroupByDate([]recording.Record{
		rec("a", "2024-03-06", "Norte", "x"),
		rec("b", "2024-03-04", "Sur", "y"),
		rec("c", "2024-03-06", "Sur", "z"),
	})
	if strings.Join(dates, ",") != "2024-03-04,2024-03-06" {
		t.Fatalf("unexpected dates %v", dates)
	}
	if len(byDate["2024-03-06"]) != 2 {
		t.Fatalf("unexpected grouping %+v", byDate)
	}
}

func TestMergeNewDocument(t *testing.T) {
	out := string(compile.Merge(nil, false, []recording.Record{
		rec("a.mp3", "2024-03-05", "Norte", "texto norte"),
		rec("b.mp3", "2024-03-05", "Sur", "texto sur"),
		rec("c.mp3", "2024-03-05", "Norte", "otro norte"),
	}, compile.MergeOptions{Title: "Compilado", Today: "2024-03-07"}))

	if !strings.HasPrefix(out, "# Compilado\n\nActualizado al 2024-03-07\n") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	if strings.Count(out, "## Norte\n") != 1 || strings.Count(out, "## Sur\n") != 1 {
		t.Fatalf("expected one heading per label:\n%s", out)
	}
	north := strings.Index(out, "## Norte")
	south := strings.Index(out, "## Sur")
	other := strings.Index(out, "otro norte")
	if !(north < other && other < south) {
		t.Fatalf("expected Norte entries grouped before Sur:\n%s", out)
	}
	if !strings.Contains(out, "### Audio – 2024-03-05 (a.mp3)\n\ntexto norte\n") {
		t.Fatalf("missing entry heading:\n%s", out)
	}
	if strings.Contains(out, "──") {
		t.Fatal("new documents must not carry a separator")
	}
}

func TestMergeAppendPreservesPrefix(t *testing.T) {
	prev := []byte("# Compilado\n\nActualizado al 2024-03-05\n\n## Norte\n\nviejo texto\n")
	out := compile.Merge(prev, true, []recording.Record{
		rec("n.mp3", "2024-03-05", "Este", "nuevo"),
	}, compile.MergeOptions{Today: "2024-03-07"})

	if !bytes.HasPrefix(out, prev) {
		t.Fatalf("prior content altered:\n%s", out)
	}
	tail := string(out[len(prev):])
	sep := strings.Index(tail, "──────────────────────────────")
	marker := strings.Index(tail, "Nuevas transcripciones agregadas el 2024-03-07")
	heading := strings.Index(tail, "## Este")
	if sep < 0 || marker < sep || heading < marker {
		t.Fatalf("unexpected appended block:\n%s", tail)
	}
	if strings.Contains(tail, "Actualizado al") {
		t.Fatal("appended block must not restate the header")
	}
}

func TestEngineCreatesThenAppends(t *testing.T) {
	backend := testsupport.NewMemoryStore()
	engine := compile.NewEngine(backend, "transcripciones", logging.NewNop(), compile.WithClock(fixedClock()), compile.WithTitle("Compilado"))
	ctx := context.Background()

	results, err := engine.Compile(ctx, []recording.Record{rec("a.mp3", "2024-03-05", "Norte", "uno")})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(results) != 1 || results[0].Appended {
		t.Fatalf("expected a new document, got %+v", results)
	}
	path := "transcripciones/2024-03-05/Compiled_2024-03-05.md"
	if results[0].Path != path {
		t.Fatalf("unexpected path %q", results[0].Path)
	}
	first, ok := backend.Contents(path)
	if !ok {
		t.Fatal("expected compiled document")
	}
	if backend.ContentType(path) == "" {
		t.Fatal("expected content type to be recorded")
	}

	results, err = engine.Compile(ctx, []recording.Record{rec("b.mp3", "2024-03-05", "Sur", "dos")})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !results[0].Appended {
		t.Fatalf("expected append, got %+v", results)
	}
	second, _ := backend.Contents(path)
	if !strings.HasPrefix(second, first) {
		t.Fatalf("second run altered prior bytes:\n%s", second)
	}
	if !strings.Contains(second, "dos") {
		t.Fatalf("expected new material:\n%s", second)
	}
}

func TestEngineSkipsUnreadableDocument(t *testing.T) {
	backend := testsupport.NewMemoryStore()
	engine := compile.NewEngine(backend, "out", nil, compile.WithClock(fixedClock()))
	broken := compile.CompiledPath("out", "2024-03-04")
	boom := errors.New("timeout")
	backend.FailGet(broken, boom)

	results, err := engine.Compile(context.Background(), []recording.Record{
		rec("a.mp3", "2024-03-04", "Norte", "uno"),
		rec("b.mp3", "2024-03-05", "Sur", "dos"),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(results) != 2 || results[0].Err == nil || results[1].Err != nil {
		t.Fatalf("unexpected results %+v", results)
	}
	if backend.PutCalls(broken) != 0 {
		t.Fatal("must not overwrite a document that could not be read")
	}
	if _, ok := backend.Contents(compile.CompiledPath("out", "2024-03-05")); !ok {
		t.Fatal("expected later date to be written")
	}
}

func TestEngineContinuesAfterUploadFailure(t *testing.T) {
	backend := testsupport.NewMemoryStore()
	engine := compile.NewEngine(backend, "out", nil, compile.WithClock(fixedClock()))
	backend.FailPut(compile.CompiledPath("out", "2024-03-04"), errors.New("quota"))

	results, err := engine.Compile(context.Background(), []recording.Record{
		rec("a.mp3", "2024-03-04", "Norte", "uno"),
		rec("b.mp3", "2024-03-05", "Sur", "dos"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if results[1].Err != nil {
		t.Fatalf("expected second date to succeed: %+v", results[1])
	}
}

func TestEngineStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := compile.NewEngine(testsupport.NewMemoryStore(), "out", nil)
	results, err := engine.Compile(ctx, []recording.Record{rec("a", "2024-03-04", "N", "x")})
	if !errors.Is(err, context.Canceled) || len(results) != 0 {
		t.Fatalf("expected cancellation, got %v %+v", err, results)
	}
}
