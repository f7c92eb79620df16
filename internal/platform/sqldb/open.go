package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	// Register the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Register the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/phrazzld/coursework/internal/config"
)

// Dialect identifies the SQL backend behind a *sql.DB.
type Dialect string

// Supported dialects. The values are the database/sql driver names.
const (
	Postgres Dialect = "pgx"
	SQLite   Dialect = "sqlite"
)

// ParseDialect validates a configured driver name.
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(driver))); d {
	case Postgres, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// TxOptions returns the transaction options units of work should use.
// PostgreSQL runs at READ COMMITTED with explicit row locks; SQLite
// transactions are always serializable and reject explicit levels.
func (d Dialect) TxOptions() *sql.TxOptions {
	if d == Postgres {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return nil
}

func (d Dialect) gooseDialect() goose.Dialect {
	if d == Postgres {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, "", err
	}

	dsn := cfg.URL
	if dialect == SQLite {
		dsn = SQLiteDSN(dsn)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open %s database: %w", dialect, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping %s database: %w", dialect, err)
	}
	return db, dialect, nil
}

// SQLiteDSN appends the pragmas every connection needs: enforced foreign
// keys, a busy timeout so concurrent writers queue instead of failing, and
// WAL journaling for file databases.
func SQLiteDSN(dsn string) string {
	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if !strings.Contains(dsn, ":memory:") && !strings.Contains(dsn, "mode=memory") {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}
