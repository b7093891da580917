package ffprobe

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio"},
			{CodecType: "data"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if d, ok := result.DurationSeconds(); !ok || d != 123.45 {
		t.Fatalf("unexpected duration: %v %v", d, ok)
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestDurationFallsBackToAudioStream(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "audio", Duration: "61.5"}},
		Format:  Format{Duration: "N/A"},
	}
	if d, ok := result.DurationSeconds(); !ok || d != 61.5 {
		t.Fatalf("expected stream duration, got %v %v", d, ok)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if _, ok := result.DurationSeconds(); ok {
		t.Fatal("expected unknown duration")
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

func TestProberDuration(t *testing.T) {
	var gotBinary string
	var gotArgs []string
	p := New("").WithRunner(func(_ context.Context, binary string, args ...string) ([]byte, error) {
		gotBinary, gotArgs = binary, args
		return []byte(`{"format":{"duration":"90.0","format_name":"mp3"},"streams":[{"codec_type":"audio","codec_name":"mp3"}]}`), nil
	})
	d, ok, err := p.Duration(context.Background(), "/tmp/a.mp3")
	if err != nil || !ok || d != 90 {
		t.Fatalf("unexpected duration %v %v %v", d, ok, err)
	}
	if gotBinary != DefaultBinary {
		t.Fatalf("unexpected binary %q", gotBinary)
	}
	if gotArgs[len(gotArgs)-1] != "/tmp/a.mp3" || !slices.Contains(gotArgs, "-show_format") {
		t.Fatalf("unexpected args %v", gotArgs)
	}
}

func TestProberErrors(t *testing.T) {
	p := New("ffprobe").WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	})
	if _, _, err := p.Duration(context.Background(), "a.mp3"); err == nil {
		t.Fatal("expected runner error")
	}
	if _, err := p.Inspect(context.Background(), " "); err == nil {
		t.Fatal("expected empty path error")
	}
	garbage := New("ffprobe").WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("not json"), nil
	})
	if _, err := garbage.Inspect(context.Background(), "a.mp3"); err == nil {
		t.Fatal("expected parse error")
	}
}
