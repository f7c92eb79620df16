package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/store"
)

// WorkflowError reports the workflow, and the step within it, that failed.
// Err always carries one of the domain error kinds.
type WorkflowError struct {
	Saga string
	Step string
	Err  error
}

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("%s failed: %v", e.Saga, e.Err)
	}
	return fmt.Sprintf("%s failed at %s: %v", e.Saga, e.Step, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// newWorkflowError classifies err and attaches the failing step, taken from a
// *store.StepError when the unit of work reported one.
func newWorkflowError(saga string, err error) *WorkflowError {
	we := &WorkflowError{Saga: saga}
	var stepErr *store.StepError
	if errors.As(err, &stepErr) {
		we.Step = stepErr.Step
	}
	we.Err = classify(err, saga, 0)
	return we
}

// classify translates store errors into domain error kinds. entity and id
// describe what was being read or written. Errors that already carry a
// domain kind are returned unchanged.
func classify(err error, entity string, id int64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInfrastructure):
		return err
	case errors.Is(err, store.ErrUsernameExists):
		return domain.NewValidationError("username", "is already taken", err)
	case errors.Is(err, store.ErrEmailExists):
		return domain.NewValidationError("email", "is already registered", err)
	case errors.Is(err, store.ErrCourseCodeExists):
		return domain.NewValidationError("code", "is already in use", err)
	case errors.Is(err, store.ErrNotFound):
		return domain.NewNotFoundError(entity, id)
	case errors.Is(err, store.ErrDuplicate):
		return &domain.ConflictError{Entity: entity, Message: "already exists", Err: err}
	case errors.Is(err, store.ErrConflict):
		return &domain.ConflictError{Entity: entity, Message: "changed concurrently", Err: err}
	case errors.Is(err, store.ErrInvalidEntity):
		return domain.NewValidationError("", "refers to a record that does not exist", err)
	default:
		return domain.NewInfrastructureError(entity, err)
	}
}
