package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind. Every typed error below matches
// exactly one of these via errors.Is.
var (
	// ErrValidation is returned when caller-supplied input is invalid.
	// The caller can recover by correcting the input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned when the acting principal does not own the
	// resource or lacks the required role. Never retried.
	ErrUnauthorized = errors.New("access denied")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a concurrent write invalidated the
	// operation. Re-running the whole workflow is safe.
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrInfrastructure is returned when storage or another collaborator
	// failed for reasons unrelated to the input.
	ErrInfrastructure = errors.New("infrastructure failure")
)

// Kind classifies an error for propagation and presentation.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindConflict
	KindInfrastructure
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// ValidationError describes a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AuthorizationError is returned when a principal acts on a resource it does
// not own, or in a role that is not permitted.
type AuthorizationError struct {
	OwnerID     int64
	PrincipalID int64
	Reason      string
}

// Error implements the error interface. It never includes ids so that the
// message can be surfaced as-is.
func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "access denied"
	}
	return "access denied: " + e.Reason
}

// Is reports whether target is ErrUnauthorized.
func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// NotFoundError is returned when an entity referenced by id does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError is returned when a concurrent writer changed state this
// operation depended on.
type ConflictError struct {
	Entity  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conflict on %s: %s: %v", e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("conflict on %s: %s", e.Entity, e.Message)
}

// Unwrap returns the wrapped error.
func (e *ConflictError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InfrastructureError wraps a storage or collaborator failure.
type InfrastructureError struct {
	Op  string
	Err error
}

// NewInfrastructureError wraps err as an InfrastructureError for op.
func NewInfrastructureError(op string, err error) *InfrastructureError {
	return &InfrastructureError{Op: op, Err: err}
}

// Error implements the error interface.
func (e *InfrastructureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error.
func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInfrastructure.
func (e *InfrastructureError) Is(target error) bool {
	return target == ErrInfrastructure
}

// KindOf returns the kind of err. The checks are ordered so that an error
// chain carrying an authorization failure is never reported as anything else.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUnauthorized):
		return KindAuthorization
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInfrastructure
	}
}
