// Package fsstore implements the storage backend over a local directory tree.
//
// It serves deployments where recordings land in a synced folder (a mounted
// drive, rclone target or NAS share). Object IDs are root-relative paths.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fieldscribe/internal/fileutil"
	"fieldscribe/internal/storage"
)

// Store reads and writes objects beneath a root directory.
type Store struct {
	root string
}

// New returns a Store rooted at dir, creating it when missing.
func New(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("fsstore: root directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("fsstore: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: create root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string { return s.root }

// Close is a no-op; it satisfies storage.Store.
func (s *Store) Close() error { return nil }

func (s *Store) resolve(p string) (string, string, error) {
	clean, err := storage.CleanPath(p)
	if err != nil {
		return "", "", err
	}
	return clean, filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Get returns the object contents or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", p, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// Put writes the object atomically, overwriting any previous version.
func (s *Store) Put(ctx context.Context, p string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(full, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// List returns regular files directly inside prefix, ordered by name. A
// missing prefix directory yields an empty listing.
func (s *Store) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, full, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	objects := make([]storage.Object, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || fileutil.IsTempName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		rel := clean + "/" + entry.Name()
		objects = append(objects, storage.Object{
			ID:           rel,
			Name:         entry.Name(),
			Path:         rel,
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}
