package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/coursework/internal/store"
)

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestMapError_Postgres(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"unique", uniqueViolationCode, store.ErrDuplicate},
		{"foreign_key", foreignKeyViolationCode, store.ErrInvalidEntity},
		{"check", checkViolationCode, store.ErrInvalidEntity},
		{"not_null", notNullViolationCode, store.ErrInvalidEntity},
		{"serialization", serializationFailureCode, store.ErrConflict},
		{"deadlock", deadlockDetectedCode, store.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tt.code, ConstraintName: "some_constraint"}
			err := MapError(fmt.Errorf("exec: %w", pgErr))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("unmapped_code_passes_through", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "42P01"}
		assert.Same(t, pgErr, MapError(pgErr))
	})
}

func TestMapError_Generic(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.ErrorIs(t, MapError(sql.ErrNoRows), store.ErrNotFound)

	plain := errors.New("connection reset")
	assert.Same(t, plain, MapError(plain))
}

func TestMapUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_email_key"}
	assert.ErrorIs(t, MapUniqueViolation(pgErr, "email", store.ErrEmailExists), store.ErrEmailExists)

	other := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_username_key"}
	err := MapUniqueViolation(other, "email", store.ErrEmailExists)
	assert.NotErrorIs(t, err, store.ErrEmailExists)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestCheckRowsAffected(t *testing.T) {
	assert.NoError(t, CheckRowsAffected(fakeResult{rows: 1}, store.ErrUserNotFound))
	assert.ErrorIs(t, CheckRowsAffected(fakeResult{rows: 0}, store.ErrUserNotFound), store.ErrUserNotFound)
	assert.Error(t, CheckRowsAffected(fakeResult{err: errors.New("unsupported")}, store.ErrUserNotFound))
	assert.Error(t, CheckRowsAffected(nil, store.ErrUserNotFound))
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("PGX")
	assert.NoError(t, err)
	assert.Equal(t, Postgres, d)
	assert.NotNil(t, d.TxOptions())

	d, err = ParseDialect("sqlite")
	assert.NoError(t, err)
	assert.Nil(t, d.TxOptions())

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t,
		"file:app.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		SQLiteDSN("file:app.db"))
	assert.Equal(t,
		"file::memory:?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		SQLiteDSN("file::memory:?cache=shared"))
}
