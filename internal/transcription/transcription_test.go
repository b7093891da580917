package transcription_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fieldscribe/internal/config"
	"fieldscribe/internal/services"
	"fieldscribe/internal/services/whisperx"
	"fieldscribe/internal/testsupport"
	"fieldscribe/internal/transcription"
)

func TestNewSelectsBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	tr, err := transcription.New(cfg)
	if err != nil {
		t.Fatalf("New whisperx: %v", err)
	}
	if !strings.HasPrefix(tr.Name(), "whisperx/") {
		t.Fatalf("unexpected engine %q", tr.Name())
	}

	cfg.Transcription.Backend = config.TranscriberOpenAI
	cfg.Transcription.OpenAIModel = "whisper-large"
	tr, err = transcription.New(cfg)
	if err != nil {
		t.Fatalf("New openai: %v", err)
	}
	if tr.Name() != "openai/whisper-large" {
		t.Fatalf("unexpected engine %q", tr.Name())
	}

	cfg.Transcription.Backend = "vosk"
	if _, err := transcription.New(cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := transcription.New(nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil config, got %v", err)
	}
}

func TestWhisperXAdapter(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "clip.wav")
	outDir := filepath.Join(dir, "wx")
	svc := whisperx.NewService(whisperx.Config{Model: "tiny"}).
		WithCommandRunner(func(_ context.Context, _ string, _ ...string) error {
			return os.WriteFile(filepath.Join(outDir, "clip.json"), []byte(`{"language":"es","segments":[{"text":"hola"}]}`), 0o644)
		})

	res, err := transcription.NewWhisperX(svc, outDir).Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hola" || res.Language != "es" {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := os.Stat(filepath.Join(outDir, "clip.json")); !os.IsNotExist(err) {
		t.Fatalf("expected WhisperX output removed, stat err=%v", err)
	}
}

func TestOpenAIAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"text":"campo Norte","language":"spanish"}`)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Transcription.Backend = config.TranscriberOpenAI
	cfg.Transcription.OpenAIBaseURL = srv.URL
	tr, err := transcription.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	audio := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(audio, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := tr.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "campo Norte" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestFuncAdapter(t *testing.T) {
	tr := transcription.Func(func(_ context.Context, path string) (transcription.Result, error) {
		return transcription.Result{Text: filepath.Base(path)}, nil
	})
	res, err := tr.Transcribe(context.Background(), "/x/y.mp3")
	if err != nil || res.Text != "y.mp3" {
		t.Fatalf("unexpected %+v %v", res, err)
	}
}
