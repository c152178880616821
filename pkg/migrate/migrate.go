package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/bakery-cart/pkg/config"
)

// DefaultDir is relative to the repository root.
const DefaultDir = "pkg/migrate/migrations"

var errNoDB = errors.New("migrate: db is required")

// Dialect maps a cart backend kind to the goose dialect name.
func Dialect(backend string) (string, error) {
	dialects := map[string]string{
		config.BackendPostgres: "postgres",
		config.BackendSQLite:   "sqlite3",
	}
	if d, ok := dialects[backend]; ok {
		return d, nil
	}
	return "", fmt.Errorf("backend %q has no sql migrations", backend)
}

func prepare(db *sql.DB, dialect string) error {
	if db == nil {
		return errNoDB
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect %q: %w", dialect, err)
	}
	return nil
}

// Run executes a goose command such as up, down or status against dir.
// Status output goes to stdout.
func Run(ctx context.Context, db *sql.DB, dialect, dir, command string, args ...string) error {
	if err := prepare(db, dialect); err != nil {
		return err
	}
	if dir == "" {
		return errors.New("migrate: dir is required")
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// CurrentVersion reports the highest applied migration.
func CurrentVersion(db *sql.DB, dialect string) (int64, error) {
	if err := prepare(db, dialect); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("read db version: %w", err)
	}
	return version, nil
}

// MigrateTo moves the schema up or down until version is the current one.
func MigrateTo(ctx context.Context, db *sql.DB, dialect, dir, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}
	current, err := CurrentVersion(db, dialect)
	if err != nil {
		return err
	}

	switch {
	case target > current:
		err = goose.UpToContext(ctx, db, dir, target)
	case target < current:
		err = goose.DownToContext(ctx, db, dir, target)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, target, err)
	}
	return nil
}
