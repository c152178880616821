package storage

import (
	"context"
	"time"
)

// Backend is the key/value surface cart state is persisted to. Values are
// opaque strings; a missing or expired key reports found=false with no error.
type Backend interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Entry is one key/value pair of a batch write.
type Entry struct {
	Key   string
	Value string
}

// BatchSetter is implemented by backends that can write several keys as one
// unit, so a reader never sees half of a batch.
type BatchSetter interface {
	SetMany(ctx context.Context, entries ...Entry) error
}

// SetAll writes entries atomically when b is a BatchSetter and otherwise one
// at a time in order, stopping at the first failure.
func SetAll(ctx context.Context, b Backend, entries ...Entry) error {
	if batch, ok := b.(BatchSetter); ok {
		return batch.SetMany(ctx, entries...)
	}
	for _, e := range entries {
		if err := b.Set(ctx, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Options tunes backends that support expiry. A zero TTL keeps entries forever.
type Options struct {
	TTL time.Duration
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

func (o Options) expiresAt() *time.Time {
	if o.TTL <= 0 {
		return nil
	}
	at := o.now().Add(o.TTL)
	return &at
}

func expired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && !expiresAt.After(now)
}
