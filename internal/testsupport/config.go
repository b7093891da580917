package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"fieldscribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.WorkDir = filepath.Join(base, "state", "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Storage.Endpoint = filepath.Join(base, "store")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSQLiteBackend switches storage to a SQLite database inside the temp dir.
func WithSQLiteBackend() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Backend = config.BackendSQLite
		b.cfg.Storage.Endpoint = filepath.Join(b.baseDir, "objects.db")
	}
}

// WithFingerprint selects the ledger fingerprint scheme.
func WithFingerprint(scheme string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Fingerprint = scheme
	}
}

// WithCheckpoints toggles saving the ledger after every recording.
func WithCheckpoints(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.CheckpointEachItem = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, uvx and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"uvx", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
