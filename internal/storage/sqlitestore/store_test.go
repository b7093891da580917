package sqlitestore_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fieldscribe/internal/storage"
	"fieldscribe/internal/storage/sqlitestore"
)

func openStore(t *testing.T, opts ...sqlitestore.Option) *sqlitestore.Store {
	t.Helper()
	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "objects.db"), opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := openStore(t)
	if _, err := store.Get(context.Background(), ".processed_log.json"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutKeepsIDAcrossOverwrite(t *testing.T) {
	clock := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	store := openStore(t, sqlitestore.WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	if err := store.Put(ctx, "inbox/a.mp3", []byte("one"), "audio/mpeg"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	first, err := store.List(ctx, "inbox")
	if err != nil || len(first) != 1 {
		t.Fatalf("List = %+v, %v", first, err)
	}

	clock = clock.Add(time.Hour)
	if err := store.Put(ctx, "inbox/a.mp3", []byte("two"), "audio/mpeg"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	second, err := store.List(ctx, "inbox")
	if err != nil || len(second) != 1 {
		t.Fatalf("List = %+v, %v", second, err)
	}
	if first[0].ID != second[0].ID {
		t.Fatalf("expected stable id, got %q then %q", first[0].ID, second[0].ID)
	}
	if !second[0].ModifiedTime.Equal(clock) {
		t.Fatalf("expected modified time %v, got %v", clock, second[0].ModifiedTime)
	}
	data, err := store.Get(ctx, "inbox/a.mp3")
	if err != nil || string(data) != "two" {
		t.Fatalf("Get = %q, %v", data, err)
	}
}

func TestListIsScopedToDirectChildren(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, p := range []string{"inbox/b.wav", "inbox/a.mp3", "inbox/old/c.mp3", "inboxes/d.mp3"} {
		if err := store.Put(ctx, p, []byte(p), ""); err != nil {
			t.Fatalf("Put %s: %v", p, err)
		}
	}
	objects, err := store.List(ctx, "/inbox/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("expected 2 objects, got %+v", objects)
	}
	if objects[0].Name != "a.mp3" || objects[0].Path != "inbox/a.mp3" || objects[1].Name != "b.wav" {
		t.Fatalf("unexpected listing %+v", objects)
	}
}

func TestReopenPreservesObjects(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "objects.db")
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Put(context.Background(), "diccionario_campos.json", []byte(`{"Norte":1}`), storage.ContentTypeJSON); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_ = store.Close()

	reopened, err := sqlitestore.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	data, err := reopened.Get(context.Background(), "diccionario_campos.json")
	if err != nil || string(data) != `{"Norte":1}` {
		t.Fatalf("Get = %q, %v", data, err)
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "objects.db")
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 7"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := sqlitestore.Open(dbPath); !errors.Is(err, sqlitestore.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
