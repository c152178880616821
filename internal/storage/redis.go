package storage

import (
	"context"
	"errors"
	"fmt"

	pkgredis "github.com/angelmondragon/bakery-cart/pkg/redis"
)

// RedisBackend stores each key under the "bakery:cart:" namespace.
type RedisBackend struct {
	client *pkgredis.Client
	opts   Options
}

var (
	_ Backend     = (*RedisBackend)(nil)
	_ BatchSetter = (*RedisBackend)(nil)
)

func NewRedisBackend(client *pkgredis.Client, opts Options) (*RedisBackend, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisBackend{client: client, opts: opts}, nil
}

func (r *RedisBackend) key(key string) string {
	return r.client.Key("cart", key)
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.key(key))
	if errors.Is(err, pkgredis.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, r.opts.TTL); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// SetMany writes entries in one MULTI/EXEC so readers never see the cart
// without its count.
func (r *RedisBackend) SetMany(ctx context.Context, entries ...Entry) error {
	pairs := make([]pkgredis.Pair, 0, len(entries))
	for _, e := range entries {
		pairs = append(pairs, pkgredis.Pair{Key: r.key(e.Key), Value: e.Value})
	}
	if err := r.client.SetPairs(ctx, r.opts.TTL, pairs...); err != nil {
		return fmt.Errorf("redis set %d keys: %w", len(entries), err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
