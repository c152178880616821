package storage

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bakery-cart/pkg/config"
	"github.com/angelmondragon/bakery-cart/pkg/db"
	"github.com/angelmondragon/bakery-cart/pkg/db/models"
	"github.com/angelmondragon/bakery-cart/pkg/logger"
	pkgredis "github.com/angelmondragon/bakery-cart/pkg/redis"
)

// Open builds the backend selected by cfg.Cart.Backend, dialing any remote
// dependency it needs. SQLite schemas are created in place; Postgres relies on
// goose migrations.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Backend, error) {
	opts := Options{TTL: cfg.Cart.TTL}

	switch cfg.Cart.Backend {
	case config.BackendMemory, "":
		return NewMemoryBackend(opts), nil

	case config.BackendFile:
		return NewFileBackend(cfg.Cart.FilePath, opts)

	case config.BackendRedis:
		client, err := pkgredis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		return NewRedisBackend(client, opts)

	case config.BackendSQLite:
		client, err := db.New(ctx, config.BackendSQLite, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		if err := client.DB().WithContext(ctx).AutoMigrate(&models.CartEntry{}); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("auto-migrate cart_entries: %w", err)
		}
		return NewGormBackend(client, opts)

	case config.BackendPostgres:
		client, err := db.New(ctx, config.BackendPostgres, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		return NewGormBackend(client, opts)

	default:
		return nil, fmt.Errorf("unknown cart backend %q", cfg.Cart.Backend)
	}
}
