package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bakery-cart/pkg/config"
	"github.com/angelmondragon/bakery-cart/pkg/db"
	"github.com/angelmondragon/bakery-cart/pkg/logger"
)

// MaybeRun applies pending migrations at boot when the cart lives in a SQL
// backend and BAKERY_AUTO_MIGRATE is enabled.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client, dir string) error {
	if !cfg.FeatureFlags.AutoMigrate || client == nil {
		return nil
	}

	dialect, err := Dialect(cfg.Cart.Backend)
	if err != nil {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": dir, "dialect": dialect})
	logg.Info(ctx, "running goose migrations (auto-run)")

	if err := Run(ctx, sqlDB, dialect, dir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
