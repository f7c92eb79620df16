package task

import (
	"fmt"

	goerrors "github.com/go-errors/errors"

	"github.com/phrazzld/coursework/internal/domain"
)

// PanicError is delivered to the continuation of work that panicked.
type PanicError struct {
	Value any
	Stack string
}

func newPanicError(recovered any) *PanicError {
	goerr := goerrors.Wrap(recovered, 1)
	return &PanicError{Value: recovered, Stack: string(goerr.Stack())}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Is classifies a panic as an infrastructure failure.
func (e *PanicError) Is(target error) bool {
	return target == domain.ErrInfrastructure
}
