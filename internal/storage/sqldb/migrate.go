package sqldb

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrate applies the schema for the active dialect. Every statement is
// idempotent so running it twice is harmless.
func (s *Store) Migrate(ctx context.Context) error {
	dir := "migrations/sqlite"
	if s.Driver() == DriverPostgres {
		dir = "migrations/postgres"
	}

	files, err := fs.Glob(migrationsFS, dir+"/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	s.logger.Debug("running migrations", "dialect", s.Driver(), "files", len(files))
	for _, name := range files {
		body, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
	}
	return nil
}
