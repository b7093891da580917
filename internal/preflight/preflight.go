package preflight

import (
	"context"

	"fieldscribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that gate a run for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}

	if cfg.Storage.Backend == config.BackendFilesystem {
		results = append(results, CheckDirectoryAccess("Storage root", cfg.Storage.Endpoint))
	}

	if cfg.Transcription.Backend == config.TranscriberOpenAI {
		results = append(results, CheckTranscriptionEndpoint(ctx, cfg.Transcription.OpenAIBaseURL, cfg.Transcription.OpenAIAPIKey))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
