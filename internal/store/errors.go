package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// Entity-specific variants below wrap it.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a user with the same email).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when the database rejects an entity, for
	// example a foreign key or check constraint violation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrConflict is returned when a concurrent writer won a race: a failed
	// compare-and-write, a serialization failure, a deadlock or a busy
	// database. Re-running the whole transaction is safe.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrTransactionFailed is returned when a database transaction cannot be
	// started or committed.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	ErrUserNotFound          = fmt.Errorf("%w: user", ErrNotFound)
	ErrStudentNotFound       = fmt.Errorf("%w: student", ErrNotFound)
	ErrInstructorNotFound    = fmt.Errorf("%w: instructor", ErrNotFound)
	ErrCourseNotFound        = fmt.Errorf("%w: course", ErrNotFound)
	ErrEnrollmentNotFound    = fmt.Errorf("%w: enrollment", ErrNotFound)
	ErrAssignmentNotFound    = fmt.Errorf("%w: assignment", ErrNotFound)
	ErrSubmissionNotFound    = fmt.Errorf("%w: submission", ErrNotFound)
	ErrGradeNotFound         = fmt.Errorf("%w: grade", ErrNotFound)
	ErrAnnouncementNotFound  = fmt.Errorf("%w: announcement", ErrNotFound)
	ErrNotificationNotFound  = fmt.Errorf("%w: notification", ErrNotFound)
	ErrCourseAverageNotFound = fmt.Errorf("%w: course average", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrUsernameExists indicates that a user with the given username already exists.
	ErrUsernameExists = fmt.Errorf("%w: username", ErrDuplicate)

	// ErrEmailExists indicates that a user with the given email already exists.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)

	// ErrCourseCodeExists indicates that a course with the given code already exists.
	ErrCourseCodeExists = fmt.Errorf("%w: course code", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsConflictError checks if the error reports a lost concurrent race.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "user", "course")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
