package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt *time.Time
}

// MemoryBackend keeps entries in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	opts    Options
}

var (
	_ Backend     = (*MemoryBackend)(nil)
	_ BatchSetter = (*MemoryBackend)(nil)
)

func NewMemoryBackend(opts Options) *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		opts:    opts,
	}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || expired(entry.expiresAt, m.opts.now()) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key, value string) error {
	return m.SetMany(ctx, Entry{Key: key, Value: value})
}

func (m *MemoryBackend) SetMany(ctx context.Context, entries ...Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	expiresAt := m.opts.expiresAt()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.Key] = memoryEntry{value: e.Value, expiresAt: expiresAt}
	}
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryBackend) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryBackend) Close() error {
	return nil
}
