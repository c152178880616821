package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileEntry struct {
	Value     string     `json:"value"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// FileBackend persists every key into a single JSON document on disk. Writes
// go to a temp file first and are renamed into place.
type FileBackend struct {
	mu      sync.RWMutex
	path    string
	entries map[string]fileEntry
	opts    Options
}

var (
	_ Backend     = (*FileBackend)(nil)
	_ BatchSetter = (*FileBackend)(nil)
)

// NewFileBackend loads path if it exists; a missing file starts empty.
func NewFileBackend(path string, opts Options) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("file backend path is required")
	}
	f := &FileBackend{
		path:    path,
		entries: make(map[string]fileEntry),
		opts:    opts,
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileBackend) load() error {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %q: %w", f.path, err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, &f.entries); err != nil {
		return fmt.Errorf("decode %q: %w", f.path, err)
	}
	return nil
}

// flush must be called with mu held for writing.
func (f *FileBackend) flush() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %q: %w", f.path, err)
	}
	b, err := json.MarshalIndent(f.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename %q: %w", tmp, err)
	}
	return nil
}

func (f *FileBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	f.mu.RLock()
	entry, ok := f.entries[key]
	f.mu.RUnlock()
	if !ok || expired(entry.ExpiresAt, f.opts.now()) {
		return "", false, nil
	}
	return entry.Value, true, nil
}

func (f *FileBackend) Set(ctx context.Context, key, value string) error {
	return f.SetMany(ctx, Entry{Key: key, Value: value})
}

// SetMany applies every entry and flushes once. On a failed flush the
// in-memory map is restored, so the file and the map stay in step.
func (f *FileBackend) SetMany(ctx context.Context, entries ...Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	expiresAt := f.opts.expiresAt()

	f.mu.Lock()
	defer f.mu.Unlock()
	prev := make(map[string]*fileEntry, len(entries))
	for _, e := range entries {
		if _, seen := prev[e.Key]; !seen {
			if old, ok := f.entries[e.Key]; ok {
				prev[e.Key] = &old
			} else {
				prev[e.Key] = nil
			}
		}
		f.entries[e.Key] = fileEntry{Value: e.Value, ExpiresAt: expiresAt}
	}
	if err := f.flush(); err != nil {
		for key, old := range prev {
			if old == nil {
				delete(f.entries, key)
			} else {
				f.entries[key] = *old
			}
		}
		return err
	}
	return nil
}

func (f *FileBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, existed := f.entries[key]
	if !existed {
		return nil
	}
	delete(f.entries, key)
	if err := f.flush(); err != nil {
		f.entries[key] = prev
		return err
	}
	return nil
}

// Ping reports whether the target directory is reachable.
func (f *FileBackend) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if _, err := os.Stat(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("stat %q: %w", dir, err)
	}
	return nil
}

func (f *FileBackend) Close() error {
	return nil
}
