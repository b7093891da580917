// Package sqlitestore implements the storage backend as a single SQLite
// database of objects keyed by path.
//
// It suits hosts where recordings are pushed by another process (an upload
// endpoint or sync job) into a database file rather than a directory tree.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fieldscribe/internal/storage"
)

// Store persists objects in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source used for modified_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open initializes or connects to the object database at dbPath.
func Open(dbPath string, opts ...Option) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, errors.New("sqlitestore: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Get returns the object contents or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, p string) ([]byte, error) {
	clean, err := storage.CleanPath(p)
	if err != nil {
		return nil, err
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, "SELECT content FROM objects WHERE path = ?", clean).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", p, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return content, nil
}

// Put inserts or replaces the object. Replacing keeps the original object ID.
func (s *Store) Put(ctx context.Context, p string, data []byte, contentType string) error {
	clean, err := storage.CleanPath(p)
	if err != nil {
		return err
	}
	parent, name := path.Split(clean)
	parent = strings.TrimSuffix(parent, "/")
	if data == nil {
		data = []byte{}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO objects (path, id, parent, name, content, content_type, size, modified_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(path) DO UPDATE SET
            content = excluded.content,
            content_type = excluded.content_type,
            size = excluded.size,
            modified_at = excluded.modified_at`,
		clean,
		uuid.NewString(),
		parent,
		name,
		data,
		contentType,
		len(data),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// List returns objects stored directly under prefix, ordered by name.
func (s *Store) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	clean, err := storage.CleanPath(prefix)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, path, name, size, modified_at FROM objects WHERE parent = ? ORDER BY name",
		clean,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	var objects []storage.Object
	for rows.Next() {
		var (
			obj      storage.Object
			modified string
		)
		if err := rows.Scan(&obj.ID, &obj.Path, &obj.Name, &obj.Size, &modified); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, modified); err == nil {
			obj.ModifiedTime = ts
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return objects, nil
}
