package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/bakery-cart/internal/storage"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// flakyBackend wraps a memory backend and fails reads or writes on demand.
type flakyBackend struct {
	*storage.MemoryBackend
	mu       sync.Mutex
	failGet  bool
	failSet  bool
	setCalls int
}

var errBackendDown = errors.New("backend down")

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{MemoryBackend: storage.NewMemoryBackend(storage.Options{})}
}

func (f *flakyBackend) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return "", false, errBackendDown
	}
	return f.MemoryBackend.Get(ctx, key)
}

func (f *flakyBackend) Set(ctx context.Context, key, value string) error {
	return f.SetMany(ctx, storage.Entry{Key: key, Value: value})
}

// SetMany counts one call per key written.
func (f *flakyBackend) SetMany(ctx context.Context, entries ...storage.Entry) error {
	f.mu.Lock()
	f.setCalls += len(entries)
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return errBackendDown
	}
	return f.MemoryBackend.SetMany(ctx, entries...)
}

func newTestStore(t *testing.T) (*Store, *flakyBackend) {
	t.Helper()
	backend := newFlakyBackend()
	store, err := NewStore(backend, Options{Clock: newStepClock().Now})
	require.NoError(t, err)
	return store, backend
}

func cake(id string, price float64) Product {
	return Product{ID: id, Name: "Cake " + id, Price: price, Images: []string{"/img/" + id + ".jpg"}}
}
