package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/platform/logger"
)

type outcome struct {
	result any
	err    error
}

// recorder collects continuation calls.
type recorder struct {
	mu    sync.Mutex
	calls []outcome
}

func (r *recorder) callback() Callback {
	return func(result any, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, outcome{result, err})
	}
}

func (r *recorder) get() []outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]outcome(nil), r.calls...)
}

func newTestDispatcher(t *testing.T, cfg Config) (*Dispatcher, *Loop) {
	t.Helper()
	loop := NewLoop()
	d := NewDispatcher(cfg, loop, nil, setupTestLogger())
	t.Cleanup(func() {
		d.Close()
		loop.Drain()
	})
	return d, loop
}

func TestDispatcher_SubmitDeliversOnLoop(t *testing.T) {
	d, loop := newTestDispatcher(t, DefaultConfig())
	rec := &recorder{}

	d.Submit(context.Background(), "answer", func(ctx context.Context) (any, error) {
		return 42, nil
	}, rec.callback())

	require.Eventually(t, func() bool { return loop.Pending() == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, rec.get(), "continuation must wait for the loop")

	assert.Equal(t, 1, loop.Drain())
	require.Len(t, rec.get(), 1)
	assert.Equal(t, outcome{42, nil}, rec.get()[0])
}

func TestDispatcher_ErrorOutcome(t *testing.T) {
	d, loop := newTestDispatcher(t, DefaultConfig())
	boom := errors.New("boom")
	rec := &recorder{}

	d.Submit(context.Background(), "fails", func(ctx context.Context) (any, error) {
		return "partial", boom
	}, rec.callback())

	require.Eventually(t, func() bool { return loop.Drain() == 1 }, time.Second, time.Millisecond)
	calls := rec.get()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].result, "a failed task never carries a result")
	assert.ErrorIs(t, calls[0].err, boom)
}

func TestDispatcher_PanicBecomesError(t *testing.T) {
	d, loop := newTestDispatcher(t, DefaultConfig())
	rec := &recorder{}

	d.Submit(context.Background(), "panics", func(ctx context.Context) (any, error) {
		panic("kaboom")
	}, rec.callback())

	require.Eventually(t, func() bool { return loop.Drain() == 1 }, time.Second, time.Millisecond)
	calls := rec.get()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].result)

	var pe *PanicError
	require.True(t, errors.As(calls[0].err, &pe), "got %v", calls[0].err)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, domain.KindInfrastructure, domain.KindOf(calls[0].err))
	assert.ErrorIs(t, calls[0].err, domain.ErrInfrastructure)
}

// blockingWork returns work that signals started and waits for release.
func blockingWork(started chan<- struct{}, release <-chan struct{}) Work {
	return func(ctx context.Context) (any, error) {
		started <- struct{}{}
		<-release
		return "released", nil
	}
}

func TestDispatcher_QueueFullRejects(t *testing.T) {
	d, loop := newTestDispatcher(t, Config{WorkerCount: 1, QueueSize: 1})
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	running, queued, rejected := &recorder{}, &recorder{}, &recorder{}

	d.Submit(context.Background(), "running", blockingWork(started, release), running.callback())
	<-started
	d.Submit(context.Background(), "queued", noopWork, queued.callback())
	d.Submit(context.Background(), "rejected", noopWork, rejected.callback())

	require.Equal(t, 1, loop.Drain())
	require.Len(t, rejected.get(), 1)
	assert.ErrorIs(t, rejected.get()[0].err, ErrQueueFull)

	close(release)
	d.Close()
	loop.Drain()

	assert.Equal(t, []outcome{{"released", nil}}, running.get())
	assert.Equal(t, []outcome{{nil, nil}}, queued.get())
	assert.Len(t, rejected.get(), 1)
}

func TestDispatcher_SubmitWait(t *testing.T) {
	t.Run("admitted_when_room_frees", func(t *testing.T) {
		d, loop := newTestDispatcher(t, Config{WorkerCount: 1, QueueSize: 1})
		started := make(chan struct{}, 1)
		release := make(chan struct{})

		d.Submit(context.Background(), "running", blockingWork(started, release), nil)
		<-started
		d.Submit(context.Background(), "queued", noopWork, nil)

		waited := &recorder{}
		admitted := make(chan struct{})
		go func() {
			d.SubmitWait(context.Background(), "waiting", func(ctx context.Context) (any, error) {
				return "ran", nil
			}, waited.callback())
			close(admitted)
		}()

		select {
		case <-admitted:
			t.Fatal("SubmitWait returned while the queue was full")
		case <-time.After(20 * time.Millisecond):
		}

		close(release)
		<-admitted
		d.Close()
		loop.Drain()
		assert.Equal(t, []outcome{{"ran", nil}}, waited.get())
	})

	t.Run("context_done_first", func(t *testing.T) {
		d, loop := newTestDispatcher(t, Config{WorkerCount: 1, QueueSize: 1})
		started := make(chan struct{}, 1)
		release := make(chan struct{})
		defer close(release)

		d.Submit(context.Background(), "running", blockingWork(started, release), nil)
		<-started
		d.Submit(context.Background(), "queued", noopWork, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		rec := &recorder{}
		ran := false
		d.SubmitWait(ctx, "waiting", func(ctx context.Context) (any, error) {
			ran = true
			return nil, nil
		}, rec.callback())

		loop.Drain()
		require.Len(t, rec.get(), 1)
		assert.ErrorIs(t, rec.get()[0].err, context.DeadlineExceeded)
		assert.False(t, ran)
	})
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	d, loop := newTestDispatcher(t, DefaultConfig())
	d.Close()

	rec := &recorder{}
	d.Submit(context.Background(), "late", noopWork, rec.callback())
	loop.Drain()

	require.Len(t, rec.get(), 1)
	assert.ErrorIs(t, rec.get()[0].err, ErrClosed)

	_, err := d.SubmitBlocking(context.Background(), "late", noopWork)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDispatcher_SubmitBlocking(t *testing.T) {
	d, loop := newTestDispatcher(t, DefaultConfig())

	result, err := d.SubmitBlocking(context.Background(), "sum", func(ctx context.Context) (any, error) {
		return 1 + 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result)
	assert.Zero(t, loop.Pending(), "blocking outcomes bypass the loop")

	_, err = d.SubmitBlocking(context.Background(), "panics", func(ctx context.Context) (any, error) {
		panic(errors.New("bad"))
	})
	var pe *PanicError
	assert.ErrorAs(t, err, &pe)
}

func TestDispatcher_WorkIsNotCancelled(t *testing.T) {
	d, _ := newTestDispatcher(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())

	observed := make(chan error, 1)
	started := make(chan struct{})
	cancelled := make(chan struct{})
	d.Submit(ctx, "uncancellable", func(ctx context.Context) (any, error) {
		close(started)
		<-cancelled
		observed <- ctx.Err()
		return nil, nil
	}, nil)

	<-started
	cancel()
	close(cancelled)
	assert.NoError(t, <-observed)
}

func TestDispatcher_FIFOWithOneWorker(t *testing.T) {
	d, loop := newTestDispatcher(t, Config{WorkerCount: 1, QueueSize: 64})

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 20; i++ {
		d.Submit(context.Background(), "ordered", func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}, nil)
	}
	d.Close()
	loop.Drain()

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, order)
}

// Every submission gets exactly one continuation call, with either a result
// or an error.
func TestDispatcher_ExactlyOnce(t *testing.T) {
	const submitters, perSubmitter = 8, 50
	loop := NewLoop()
	d := NewDispatcher(Config{WorkerCount: 4, QueueSize: 16}, loop, nil, setupTestLogger())

	var (
		mu    sync.Mutex
		calls = map[string]int{}
		bad   []string
	)
	var wg sync.WaitGroup
	for s := 0; s < submitters; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perSubmitter; i++ {
				key := fmt.Sprintf("%d-%d", s, i)
				fail := i%3 == 0
				d.SubmitWait(context.Background(), "property", func(ctx context.Context) (any, error) {
					if fail {
						return nil, errors.New(key)
					}
					return key, nil
				}, func(result any, err error) {
					mu.Lock()
					defer mu.Unlock()
					calls[key]++
					if (result == nil) == (err == nil) {
						bad = append(bad, key)
					}
				})
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	wg.Wait()
	d.Close()
	cancel()
	require.ErrorIs(t, <-loopDone, context.Canceled)
	loop.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, calls, submitters*perSubmitter)
	for key, n := range calls {
		assert.Equal(t, 1, n, key)
	}
	assert.Empty(t, bad)
}

func TestDispatcher_EnrichesContextLogger(t *testing.T) {
	log, buf := logger.NewCapture()
	loop := NewLoop()
	d := NewDispatcher(DefaultConfig(), loop, nil, log)

	_, err := d.SubmitBlocking(context.Background(), "logs", func(ctx context.Context) (any, error) {
		logger.FromContext(ctx).Info("inside work")
		return nil, nil
	})
	require.NoError(t, err)
	d.Close()

	entries, err := buf.Entries()
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e["msg"] != "inside work" {
			continue
		}
		found = true
		assert.Equal(t, "logs", e["task_name"])
		_, err := uuid.Parse(fmt.Sprint(e["task_id"]))
		assert.NoError(t, err)
	}
	assert.True(t, found, buf.String())
}

func TestDispatcher_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	loop := NewLoop()
	d := NewDispatcher(Config{WorkerCount: 1, QueueSize: 1}, loop, metrics, setupTestLogger())

	_, _ = d.SubmitBlocking(context.Background(), "ok", noopWork)
	_, _ = d.SubmitBlocking(context.Background(), "bad", func(ctx context.Context) (any, error) {
		return nil, errors.New("no")
	})
	d.Close()
	d.Submit(context.Background(), "late", noopWork, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.tasks.WithLabelValues("ok", string(StatusSucceeded))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.tasks.WithLabelValues("bad", string(StatusFailed))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.tasks.WithLabelValues("late", string(StatusRejected))))
	assert.Zero(t, testutil.ToFloat64(metrics.inFlight))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.duration))
}

func TestNewDispatcher_Defaults(t *testing.T) {
	d, _ := newTestDispatcher(t, Config{})
	assert.Equal(t, DefaultConfig().WorkerCount, d.pool.workerCount)
	assert.Equal(t, DefaultConfig().QueueSize, cap(d.queue.tasks))
}
