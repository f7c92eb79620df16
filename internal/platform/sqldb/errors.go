package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/phrazzld/coursework/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode      = "23505"
	foreignKeyViolationCode  = "23503"
	checkViolationCode       = "23514"
	notNullViolationCode     = "23502"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
	lockNotAvailableCode     = "55P03"
)

// MapError maps a driver error to the matching store error, wrapping the
// original to keep the detail for logs. Errors that already carry a store
// error, and errors with no mapping, are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case foreignKeyViolationCode:
			return fmt.Errorf("%w: foreign key violation (%s): %v",
				store.ErrInvalidEntity, pgErr.ConstraintName, err)
		case checkViolationCode:
			return fmt.Errorf("%w: check constraint violation (%s): %v",
				store.ErrInvalidEntity, pgErr.ConstraintName, err)
		case notNullViolationCode:
			return fmt.Errorf("%w: not null violation (%s): %v",
				store.ErrInvalidEntity, pgErr.ColumnName, err)
		case serializationFailureCode, deadlockDetectedCode, lockNotAvailableCode:
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			if isSQLiteUnique(liteErr) {
				return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
			}
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		}
	}

	return err
}

func isSQLiteUnique(err *sqlite.Error) bool {
	switch err.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsUniqueViolation reports whether err is a unique constraint violation in
// either dialect.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && isSQLiteUnique(liteErr)
	}
	return false
}

// violatedColumn returns a lower-cased description of the violated
// constraint: the constraint name on PostgreSQL ("users_email_key"), the
// message on SQLite ("unique constraint failed: users.email").
func violatedColumn(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.ToLower(pgErr.ConstraintName)
	}
	return strings.ToLower(err.Error())
}

// MapUniqueViolation maps a unique violation on the constraint mentioning
// column to specific. Any other error goes through MapError.
func MapUniqueViolation(err error, column string, specific error) error {
	if IsUniqueViolation(err) && strings.Contains(violatedColumn(err), column) {
		return fmt.Errorf("%w: %v", specific, err)
	}
	return MapError(err)
}

// CheckRowsAffected examines the number of rows affected by an UPDATE or
// DELETE and returns notFound if there were none.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
