package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/coursework/internal/config"
	"github.com/phrazzld/coursework/internal/platform/sqldb"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 10 * time.Second

// PostgresURLEnv names the variable that switches tests to PostgreSQL.
const PostgresURLEnv = "COURSEWORK_TEST_DATABASE_URL"

// tables in reverse dependency order.
var tables = []string{
	"course_averages",
	"notifications",
	"announcements",
	"grades",
	"submissions",
	"assignments",
	"enrollments",
	"courses",
	"instructors",
	"students",
	"users",
}

// IsIntegrationTestEnvironment reports whether tests run against PostgreSQL.
func IsIntegrationTestEnvironment() bool {
	return os.Getenv(PostgresURLEnv) != ""
}

// New opens a migrated, empty database for t and closes it on cleanup.
func New(t *testing.T) (*sql.DB, sqldb.Dialect) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	cfg := config.DatabaseConfig{
		Driver:       string(sqldb.SQLite),
		URL:          "file:" + filepath.Join(t.TempDir(), "coursework.db"),
		MaxOpenConns: 8,
	}
	if IsIntegrationTestEnvironment() {
		cfg.Driver = string(sqldb.Postgres)
		cfg.URL = os.Getenv(PostgresURLEnv)
	}

	db, dialect, err := sqldb.Open(ctx, cfg)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqldb.Migrate(ctx, db, dialect), "failed to run migrations")

	if dialect == sqldb.Postgres {
		for _, table := range tables {
			_, err := db.ExecContext(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE")
			require.NoError(t, err, "failed to truncate %s", table)
		}
	}
	return db, dialect
}

// WithTx executes fn within a transaction that is rolled back afterwards.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		err := tx.Rollback()
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// Count returns the number of rows of table matching where (may be empty).
func Count(t *testing.T, db *sql.DB, table, where string, args ...any) int {
	t.Helper()
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n), "count %s", table)
	return n
}
