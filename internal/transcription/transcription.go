package transcription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fieldscribe/internal/config"
	"fieldscribe/internal/services"
	"fieldscribe/internal/services/openai"
	"fieldscribe/internal/services/whisperx"
)

// Result is an engine-neutral transcript.
type Result struct {
	Text     string
	Language string
}

// Transcriber turns a local audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Result, error)
	// Name identifies the engine and model for logs.
	Name() string
}

// Func adapts a plain function to Transcriber.
type Func func(ctx context.Context, audioPath string) (Result, error)

// Transcribe calls f.
func (f Func) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	return f(ctx, audioPath)
}

// Name reports a generic engine name.
func (f Func) Name() string { return "func" }

// New builds the engine selected by cfg.Transcription.Backend.
func New(cfg *config.Config) (Transcriber, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "init", "config required", nil)
	}
	tc := cfg.Transcription
	timeout := time.Duration(tc.TimeoutSeconds) * time.Second
	switch tc.Backend {
	case config.TranscriberWhisperX:
		svc := whisperx.NewService(whisperx.Config{
			Model:       tc.Model,
			Language:    tc.Language,
			CUDAEnabled: tc.CUDAEnabled,
			VADMethod:   tc.VADMethod,
			HFToken:     tc.HFToken,
			Timeout:     timeout,
		})
		return NewWhisperX(svc, filepath.Join(cfg.Paths.WorkDir, "whisperx")), nil
	case config.TranscriberOpenAI:
		client := openai.New(openai.Config{
			BaseURL:  tc.OpenAIBaseURL,
			APIKey:   tc.OpenAIAPIKey,
			Model:    tc.OpenAIModel,
			Language: tc.Language,
			Timeout:  timeout,
		})
		return NewOpenAI(client), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "init", fmt.Sprintf("unsupported backend %q", tc.Backend), nil)
	}
}

// WhisperX adapts the local WhisperX service.
type WhisperX struct {
	svc       *whisperx.Service
	outputDir string
}

// NewWhisperX wraps svc; JSON output lands in outputDir.
func NewWhisperX(svc *whisperx.Service, outputDir string) *WhisperX {
	return &WhisperX{svc: svc, outputDir: outputDir}
}

// Transcribe runs WhisperX on audioPath.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	res, err := w.svc.TranscribeFile(ctx, audioPath, w.outputDir)
	if err != nil {
		return Result{}, err
	}
	_ = os.Remove(res.JSONPath)
	return Result{Text: res.Text, Language: res.Language}, nil
}

// Name reports the engine and model.
func (w *WhisperX) Name() string {
	return "whisperx/" + w.svc.Model()
}

// OpenAI adapts an OpenAI-compatible HTTP endpoint.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI wraps client.
func NewOpenAI(client *openai.Client) *OpenAI {
	return &OpenAI{client: client}
}

// Transcribe uploads audioPath.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	res, err := o.client.Transcribe(ctx, audioPath)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: res.Text, Language: res.Language}, nil
}

// Name reports the engine and model.
func (o *OpenAI) Name() string {
	return "openai/" + o.client.Model()
}
