package backends_test

import (
	"context"
	"path/filepath"
	"testing"

	"fieldscribe/internal/config"
	"fieldscribe/internal/storage/backends"
)

func TestOpenSelectsBackend(t *testing.T) {
	tests := []struct {
		name     string
		backend  string
		endpoint func(dir string) string
	}{
		{"filesystem", config.BackendFilesystem, func(dir string) string { return dir }},
		{"sqlite", config.BackendSQLite, func(dir string) string { return filepath.Join(dir, "objects.db") }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Backend = tc.backend
			cfg.Storage.Endpoint = tc.endpoint(t.TempDir())

			store, err := backends.Open(&cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer store.Close()

			ctx := context.Background()
			if err := store.Put(ctx, "roundtrip.txt", []byte("ok"), "text/plain"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			data, err := store.Get(ctx, "roundtrip.txt")
			if err != nil || string(data) != "ok" {
				t.Fatalf("Get = %q, %v", data, err)
			}
		})
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "s3"
	if _, err := backends.Open(&cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
