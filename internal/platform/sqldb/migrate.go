package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/phrazzld/coursework/internal/platform/logger"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

func migrationsFor(dialect Dialect) (fs.FS, error) {
	dir := "migrations/sqlite"
	if dialect == Postgres {
		dir = "migrations/postgres"
	}
	return fs.Sub(migrations, dir)
}

// Migrate applies every pending migration for dialect.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	log := logger.FromContext(ctx)

	fsys, err := migrationsFor(dialect)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect.gooseDialect(), db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, r := range results {
		log.Info("applied migration",
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration))
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	log.Debug("database schema up to date",
		slog.String("dialect", string(dialect)),
		slog.Int64("version", version))
	return nil
}
