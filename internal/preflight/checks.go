package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"fieldscribe/internal/config"
	"fieldscribe/internal/deps"
	"fieldscribe/internal/storage/backends"
)

// CheckTranscriptionEndpoint verifies an OpenAI-compatible server is reachable
// and accepts the key by listing its models.
func CheckTranscriptionEndpoint(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Transcription API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/models", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeHTTPError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStorage opens the configured backend and lists the source prefix.
func CheckStorage(ctx context.Context, cfg *config.Config) Result {
	const name = "Storage"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	store, err := backends.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open %s backend: %v", cfg.Storage.Backend, err)}
	}
	defer store.Close()

	objects, err := store.List(ctx, cfg.Storage.SourcePrefix)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("list %s: %v", cfg.Storage.SourcePrefix, err)}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s %s (%d objects under %s)", cfg.Storage.Backend, cfg.Storage.Endpoint, len(objects), cfg.Storage.SourcePrefix),
	}
}

// CheckSystemDeps evaluates the external binaries the configured engine needs.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobePath(cfg.FFprobeBinary()),
			Description: "Reads recording durations; documents show an unknown duration without it",
			Optional:    true,
		},
	}
	if cfg.Transcription.Backend == config.TranscriberWhisperX {
		requirements = append(requirements,
			deps.Requirement{
				Name:        "uvx",
				Command:     "uvx",
				Description: "Required for WhisperX-driven transcription",
			},
			deps.Requirement{
				Name:        "FFmpeg",
				Command:     "ffmpeg",
				Description: "Required by WhisperX to decode audio",
			},
		)
	}
	return deps.CheckBinaries(requirements)
}

func summarizeHTTPError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (transcription API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (transcription API unreachable)"
	}
	return err.Error()
}
