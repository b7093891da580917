package testsupport

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"fieldscribe/internal/storage"
	"fieldscribe/internal/storage/sqlitestore"
)

// MustOpenSQLiteStore opens a sqlitestore.Store in a temp dir and registers cleanup.
func MustOpenSQLiteStore(t testing.TB) *sqlitestore.Store {
	t.Helper()

	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "objects.db"))
	if err != nil {
		t.Fatalf("sqlitestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MemoryStore is an in-memory storage.Backend with fault injection.
type MemoryStore struct {
	mu       sync.Mutex
	objects  map[string]memoryObject
	getErrs  map[string]error
	putErrs  map[string]error
	listErr  error
	getCalls map[string]int
	putCalls map[string]int
	clock    time.Time
}

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// NewMemoryStore returns an empty store whose clock starts at a fixed instant.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string]memoryObject),
		getErrs:  make(map[string]error),
		putErrs:  make(map[string]error),
		getCalls: make(map[string]int),
		putCalls: make(map[string]int),
		clock:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Seed stores data at p with an explicit modification time.
func (m *MemoryStore) Seed(p string, data []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[mustClean(p)] = memoryObject{data: append([]byte(nil), data...), modified: modified}
}

// FailGet makes Get on p return err until cleared with a nil err.
func (m *MemoryStore) FailGet(p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.getErrs, mustClean(p))
		return
	}
	m.getErrs[mustClean(p)] = err
}

// FailPut makes Put on p return err until cleared with a nil err.
func (m *MemoryStore) FailPut(p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.putErrs, mustClean(p))
		return
	}
	m.putErrs[mustClean(p)] = err
}

// FailList makes List return err.
func (m *MemoryStore) FailList(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// Get implements storage.Backend.
func (m *MemoryStore) Get(_ context.Context, p string) ([]byte, error) {
	clean, err := storage.CleanPath(p)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls[clean]++
	if err := m.getErrs[clean]; err != nil {
		return nil, err
	}
	obj, ok := m.objects[clean]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, storage.ErrNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

// Put implements storage.Backend.
func (m *MemoryStore) Put(_ context.Context, p string, data []byte, contentType string) error {
	clean, err := storage.CleanPath(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls[clean]++
	if err := m.putErrs[clean]; err != nil {
		return err
	}
	m.clock = m.clock.Add(time.Second)
	m.objects[clean] = memoryObject{data: append([]byte(nil), data...), contentType: contentType, modified: m.clock}
	return nil
}

// List implements storage.Backend. Object IDs are the cleaned paths.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]storage.Object, error) {
	clean, err := storage.CleanPath(prefix)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []storage.Object
	for p, obj := range m.objects {
		dir, name := path.Split(p)
		if strings.TrimSuffix(dir, "/") != clean {
			continue
		}
		out = append(out, storage.Object{ID: p, Name: name, Path: p, Size: int64(len(obj.data)), ModifiedTime: obj.modified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close implements storage.Store.
func (m *MemoryStore) Close() error { return nil }

// Contents returns the stored bytes at p as a string and whether it exists.
func (m *MemoryStore) Contents(p string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[mustClean(p)]
	return string(obj.data), ok
}

// ContentType returns the content type recorded for p.
func (m *MemoryStore) ContentType(p string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[mustClean(p)].contentType
}

// Paths returns every stored path, sorted.
func (m *MemoryStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for p := range m.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// GetCalls reports how many times Get was called for p.
func (m *MemoryStore) GetCalls(p string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls[mustClean(p)]
}

// PutCalls reports how many times Put was called for p.
func (m *MemoryStore) PutCalls(p string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putCalls[mustClean(p)]
}

func mustClean(p string) string {
	clean, err := storage.CleanPath(p)
	if err != nil {
		panic(err)
	}
	return clean
}
