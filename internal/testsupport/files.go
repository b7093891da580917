package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteRecording creates dir/name holding data, creating dir as needed. A
// non-zero modified stamps the file's mtime, which the filesystem backend
// reports as the recording's modification time.
func WriteRecording(t testing.TB, dir, name string, data []byte, modified time.Time) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if !modified.IsZero() {
		if err := os.Chtimes(path, modified, modified); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}
	return path
}
