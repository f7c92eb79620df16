package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the TaskQueue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is a bounded FIFO of tasks shared by the workers.
type TaskQueue struct {
	tasks  chan *Task
	done   chan struct{}
	logger *slog.Logger

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewTaskQueue creates a new task queue with the specified buffer size
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskQueue{
		tasks:  make(chan *Task, size),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Enqueue adds a task without blocking.
// Returns ErrQueueFull if the queue is at capacity or ErrQueueClosed.
func (q *TaskQueue) Enqueue(task *Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		q.logEnqueued(task)
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.tasks))
	}
}

// EnqueueWait adds a task, blocking until there is room, ctx is done or the
// queue is closed.
func (q *TaskQueue) EnqueueWait(ctx context.Context, task *Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		q.logEnqueued(task)
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops admission. Tasks already queued stay readable from Channel.
func (q *TaskQueue) Close() {
	q.closeOnce.Do(func() {
		// Wake blocked EnqueueWait calls so they release the read lock.
		close(q.done)

		q.mu.Lock()
		defer q.mu.Unlock()
		q.closed = true
		close(q.tasks)
		q.logger.Debug("task queue closed", "remaining", len(q.tasks))
	})
}

// Channel returns the receive side consumed by workers. It is closed after
// Close once drained.
func (q *TaskQueue) Channel() <-chan *Task {
	return q.tasks
}

// Len returns the number of queued tasks.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}

func (q *TaskQueue) logEnqueued(task *Task) {
	q.logger.Debug("task enqueued",
		"task_id", task.ID,
		"task_name", task.Name,
		"queue_len", len(q.tasks),
		"queue_cap", cap(q.tasks))
}
