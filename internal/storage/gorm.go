package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/bakery-cart/pkg/db"
	"github.com/angelmondragon/bakery-cart/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBackend keeps entries in the cart_entries table.
type GormBackend struct {
	client *db.Client
	opts   Options
}

var (
	_ Backend     = (*GormBackend)(nil)
	_ BatchSetter = (*GormBackend)(nil)
)

func NewGormBackend(client *db.Client, opts Options) (*GormBackend, error) {
	if client == nil || client.DB() == nil {
		return nil, fmt.Errorf("db client is required")
	}
	return &GormBackend{client: client, opts: opts}, nil
}

// Client exposes the underlying connection for migrations.
func (g *GormBackend) Client() *db.Client {
	return g.client
}

func (g *GormBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.CartEntry
	err := g.client.DB().WithContext(ctx).
		Where(map[string]any{"key": key}).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select cart entry %q: %w", key, err)
	}
	if expired(entry.ExpiresAt, g.opts.now()) {
		return "", false, nil
	}
	return entry.Value, true, nil
}

var upsertEntry = clause.OnConflict{
	Columns:   []clause.Column{{Name: "key"}},
	DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
}

func (g *GormBackend) Set(ctx context.Context, key, value string) error {
	entry := models.CartEntry{Key: key, Value: value, ExpiresAt: g.opts.expiresAt()}
	if err := g.client.DB().WithContext(ctx).Clauses(upsertEntry).Create(&entry).Error; err != nil {
		return fmt.Errorf("upsert cart entry %q: %w", key, err)
	}
	return nil
}

// SetMany upserts every entry inside one transaction.
func (g *GormBackend) SetMany(ctx context.Context, entries ...Entry) error {
	expiresAt := g.opts.expiresAt()
	return g.client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, e := range entries {
			row := models.CartEntry{Key: e.Key, Value: e.Value, ExpiresAt: expiresAt}
			if err := tx.Clauses(upsertEntry).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert cart entry %q: %w", e.Key, err)
			}
		}
		return nil
	})
}

func (g *GormBackend) Delete(ctx context.Context, key string) error {
	err := g.client.DB().WithContext(ctx).
		Where(map[string]any{"key": key}).
		Delete(&models.CartEntry{}).Error
	if err != nil {
		return fmt.Errorf("delete cart entry %q: %w", key, err)
	}
	return nil
}

func (g *GormBackend) Ping(ctx context.Context) error {
	return g.client.Ping(ctx)
}

func (g *GormBackend) Close() error {
	return g.client.Close()
}
