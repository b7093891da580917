package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when no object exists at the requested path.
var ErrNotFound = errors.New("storage: object not found")

// Content types used by fieldscribe when writing objects.
const (
	ContentTypeJSON     = "application/json"
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
)

// Object describes one listed entry.
type Object struct {
	// ID is the backend-assigned identifier. It is stable for the life of the
	// object and is combined with ModifiedTime for metadata fingerprints.
	ID           string
	Name         string
	Path         string
	Size         int64
	ModifiedTime time.Time
}

// Backend is the remote store fieldscribe reads recordings from and writes
// documents, the ledger and the vocabulary to. Paths are slash-separated and
// relative to the backend root.
type Backend interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, data []byte, contentType string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Join builds a clean slash-separated object path from its parts.
func Join(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(strings.TrimSpace(part), "/")
		if part != "" {
			cleaned = append(cleaned, part)
		}
	}
	if len(cleaned) == 0 {
		return ""
	}
	return path.Clean(strings.Join(cleaned, "/"))
}

// CleanPath normalizes a caller-supplied path and rejects attempts to escape
// the backend root.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" || p == "." {
		return "", errors.New("storage: empty object path")
	}
	return p, nil
}

// Store is a Backend that owns resources released by Close.
type Store interface {
	Backend
	Close() error
}
