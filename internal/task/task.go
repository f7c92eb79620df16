package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a task
type Status string

// Possible task status values
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

// Work is a unit of background work. It must not touch UI state.
type Work func(ctx context.Context) (any, error)

// Callback receives the outcome of a task: a result or a non-nil error,
// never both.
type Callback func(result any, err error)

// Task is one submission: the work, its continuation and the context it
// runs with. A task is executed at most once.
type Task struct {
	ID         uuid.UUID
	Name       string
	EnqueuedAt time.Time

	ctx    context.Context
	work   Work
	onDone Callback
	// direct runs onDone on the worker instead of posting it.
	direct bool
}

func newTask(ctx context.Context, name string, work Work, onDone Callback) *Task {
	return &Task{
		ID:         uuid.New(),
		Name:       name,
		EnqueuedAt: time.Now(),
		// Work is never cancelled once submitted.
		ctx:    context.WithoutCancel(ctx),
		work:   work,
		onDone: onDone,
	}
}
