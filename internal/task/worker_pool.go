package task

import (
	"log/slog"
	"sync"
)

// WorkerPool manages a fixed number of worker goroutines that consume a
// TaskQueue. Workers exit once the queue is closed and drained.
type WorkerPool struct {
	// queue provides the tasks to be processed
	queue *TaskQueue

	// workerCount is the number of concurrent workers to start
	workerCount int

	// process executes one task; it must not panic
	process func(workerID int, task *Task)

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	startOnce sync.Once
	logger    *slog.Logger
}

// NewWorkerPool creates a worker pool over queue. A non-positive
// workerCount is raised to 1.
func NewWorkerPool(queue *TaskQueue, workerCount int, process func(workerID int, task *Task), logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	if workerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", workerCount,
			"default_count", 1)
		workerCount = 1
	}

	return &WorkerPool{
		queue:       queue,
		workerCount: workerCount,
		process:     process,
		logger:      logger,
	}
}

// Start launches the workers. Calling it again has no effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

// Wait blocks until every worker has exited, which happens after the queue
// is closed and every queued task has been processed.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)
	for task := range p.queue.Channel() {
		p.process(id, task)
	}
	p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
}
