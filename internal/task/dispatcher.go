package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/redact"
)

// ErrClosed is delivered to continuations of work submitted after Close.
var ErrClosed = errors.New("dispatcher is closed")

// Config sizes a Dispatcher.
type Config struct {
	// WorkerCount is the number of concurrent workers. Defaults to 4.
	WorkerCount int
	// QueueSize bounds the FIFO of admitted work. Defaults to 256.
	QueueSize int
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		WorkerCount: 4,
		QueueSize:   256,
	}
}

// Dispatcher executes work on a bounded worker pool and delivers every
// outcome through a Poster. Each submission gets exactly one continuation
// call, including submissions that were rejected.
type Dispatcher struct {
	queue   *TaskQueue
	pool    *WorkerPool
	poster  Poster
	metrics *Metrics
	logger  *slog.Logger

	closeOnce sync.Once
}

// NewDispatcher creates a Dispatcher and starts its workers. Continuations
// are handed to poster, which must not be nil.
func NewDispatcher(cfg Config, poster Poster, metrics *Metrics, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaults.WorkerCount
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}

	log = log.With("component", "dispatcher")
	d := &Dispatcher{
		queue:   NewTaskQueue(cfg.QueueSize, log),
		poster:  poster,
		metrics: metrics,
		logger:  log,
	}
	d.pool = NewWorkerPool(d.queue, cfg.WorkerCount, d.run, log)
	d.pool.Start()

	log.Info("dispatcher started",
		"worker_count", cfg.WorkerCount,
		"queue_size", cfg.QueueSize)
	return d
}

// Submit queues work without blocking. A full queue rejects the work rather
// than waiting: onDone receives an error wrapping ErrQueueFull and the work
// never runs. After Close, onDone receives ErrClosed. Use SubmitWait to wait
// for queue space instead.
func (d *Dispatcher) Submit(ctx context.Context, name string, work Work, onDone Callback) {
	t := newTask(ctx, name, work, onDone)
	d.admit(t, d.queue.Enqueue(t))
}

// SubmitWait queues work, blocking the caller while the queue is full. If
// ctx is done first, onDone receives ctx.Err() and the work never runs.
func (d *Dispatcher) SubmitWait(ctx context.Context, name string, work Work, onDone Callback) {
	t := newTask(ctx, name, work, onDone)
	d.admit(t, d.queue.EnqueueWait(ctx, t))
}

// SubmitBlocking runs work on the pool and waits for its outcome. It is for
// callers that are already off the interactive thread; the outcome is
// returned directly rather than posted. If ctx is done before the outcome is
// available, ctx.Err() is returned and the work, once admitted, still runs
// to completion.
func (d *Dispatcher) SubmitBlocking(ctx context.Context, name string, work Work) (any, error) {
	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)

	t := newTask(ctx, name, work, func(result any, err error) {
		done <- outcome{result, err}
	})
	t.direct = true
	d.admit(t, d.queue.EnqueueWait(ctx, t))

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Queued returns the number of admitted tasks not yet picked up by a
// worker.
func (d *Dispatcher) Queued() int {
	return d.queue.Len()
}

// Close stops admission, waits for every queued task to finish and posts
// their continuations. The Poster owner should drain it afterwards.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.queue.Close()
		d.pool.Wait()
		d.logger.Info("dispatcher stopped")
	})
}

func (d *Dispatcher) admit(t *Task, err error) {
	if err == nil {
		d.metrics.admitted()
		return
	}
	if errors.Is(err, ErrQueueClosed) {
		err = ErrClosed
	}
	d.metrics.rejected(t.Name)
	d.logger.Warn("task rejected",
		"task_id", t.ID,
		"task_name", t.Name,
		"error", err)
	d.deliver(t, nil, err)
}

// run executes one task on worker workerID.
func (d *Dispatcher) run(workerID int, t *Task) {
	log := logger.FromContextOrDefault(t.ctx, d.logger).With(
		slog.String("task_id", t.ID.String()),
		slog.String("task_name", t.Name),
	)
	ctx := logger.WithLogger(t.ctx, log)

	d.metrics.started(t.EnqueuedAt)
	started := time.Now()
	log.Debug("processing task", "worker_id", workerID)

	result, err := execute(ctx, t.work)

	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
		result = nil
		var pe *PanicError
		if errors.As(err, &pe) {
			log.Error("task panicked", "panic", pe.Value, "stack", pe.Stack)
		} else {
			log.Debug("task failed", "error", err)
		}
	} else {
		log.Debug("task completed successfully")
	}
	d.metrics.finished(t.Name, status, time.Since(started))

	d.deliver(t, result, err)
}

func (d *Dispatcher) deliver(t *Task, result any, err error) {
	if t.onDone == nil {
		if err != nil {
			d.logger.Error("task failed without a continuation",
				"task_id", t.ID,
				"task_name", t.Name,
				"error", redact.Error(err))
		}
		return
	}
	if t.direct {
		t.onDone(result, err)
		return
	}
	d.poster.Post(func() { t.onDone(result, err) })
}

// execute runs work, turning a panic into a *PanicError.
func execute(ctx context.Context, work Work) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, newPanicError(r)
		}
	}()
	return work(ctx)
}
