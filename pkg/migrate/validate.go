package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

var migrationFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir fails unless dir holds at least one migration and every .sql
// file has a unique timestamp version and an Up section followed by a Down
// section.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}

	versions := make(map[string]string, len(paths))
	for _, path := range paths {
		version, err := checkMigration(path)
		if err != nil {
			return err
		}
		if other, dup := versions[version]; dup {
			return fmt.Errorf("version %s used by both %s and %s", version, other, filepath.Base(path))
		}
		versions[version] = filepath.Base(path)
	}
	return nil
}

func checkMigration(path string) (string, error) {
	name := filepath.Base(path)
	match := migrationFileRe.FindStringSubmatch(name)
	if match == nil {
		return "", fmt.Errorf("%s: want YYYYMMDDHHMMSS_name.sql", name)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	text := string(body)
	up := strings.Index(text, upMarker)
	down := strings.Index(text, downMarker)
	switch {
	case up < 0:
		return "", fmt.Errorf("%s: missing %q", name, upMarker)
	case down < 0:
		return "", fmt.Errorf("%s: missing %q", name, downMarker)
	case down < up:
		return "", fmt.Errorf("%s: Down section precedes Up", name)
	}
	return match[1], nil
}
