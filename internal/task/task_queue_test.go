package task

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func noopWork(ctx context.Context) (any, error) { return nil, nil }

func TestTaskQueue_Enqueue(t *testing.T) {
	q := NewTaskQueue(2, setupTestLogger())

	first := newTask(context.Background(), "first", noopWork, nil)
	second := newTask(context.Background(), "second", noopWork, nil)
	require.NoError(t, q.Enqueue(first))
	require.NoError(t, q.Enqueue(second))
	assert.Equal(t, 2, q.Len())

	err := q.Enqueue(newTask(context.Background(), "third", noopWork, nil))
	assert.ErrorIs(t, err, ErrQueueFull)

	assert.Same(t, first, <-q.Channel(), "FIFO order")
	assert.Same(t, second, <-q.Channel())
}

func TestTaskQueue_EnqueueWait(t *testing.T) {
	t.Run("waits_for_room", func(t *testing.T) {
		q := NewTaskQueue(1, setupTestLogger())
		require.NoError(t, q.Enqueue(newTask(context.Background(), "a", noopWork, nil)))

		admitted := make(chan error, 1)
		go func() {
			admitted <- q.EnqueueWait(context.Background(), newTask(context.Background(), "b", noopWork, nil))
		}()

		select {
		case <-admitted:
			t.Fatal("EnqueueWait returned while the queue was full")
		case <-time.After(20 * time.Millisecond):
		}

		<-q.Channel()
		require.NoError(t, <-admitted)
		assert.Equal(t, 1, q.Len())
	})

	t.Run("context_done", func(t *testing.T) {
		q := NewTaskQueue(1, setupTestLogger())
		require.NoError(t, q.Enqueue(newTask(context.Background(), "a", noopWork, nil)))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := q.EnqueueWait(ctx, newTask(ctx, "b", noopWork, nil))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("closed_while_waiting", func(t *testing.T) {
		q := NewTaskQueue(1, setupTestLogger())
		require.NoError(t, q.Enqueue(newTask(context.Background(), "a", noopWork, nil)))

		admitted := make(chan error, 1)
		go func() {
			admitted <- q.EnqueueWait(context.Background(), newTask(context.Background(), "b", noopWork, nil))
		}()
		time.Sleep(10 * time.Millisecond)

		q.Close()
		assert.ErrorIs(t, <-admitted, ErrQueueClosed)
	})
}

func TestTaskQueue_Close(t *testing.T) {
	q := NewTaskQueue(4, setupTestLogger())
	queued := newTask(context.Background(), "queued", noopWork, nil)
	require.NoError(t, q.Enqueue(queued))

	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Enqueue(newTask(context.Background(), "late", noopWork, nil)), ErrQueueClosed)
	assert.ErrorIs(t, q.EnqueueWait(context.Background(), newTask(context.Background(), "late", noopWork, nil)), ErrQueueClosed)

	got, ok := <-q.Channel()
	require.True(t, ok, "queued tasks survive Close")
	assert.Same(t, queued, got)
	_, ok = <-q.Channel()
	assert.False(t, ok)
}

func TestNewTaskQueue_MinimumSize(t *testing.T) {
	q := NewTaskQueue(0, nil)
	require.NoError(t, q.Enqueue(newTask(context.Background(), "a", noopWork, nil)))
	assert.ErrorIs(t, q.Enqueue(newTask(context.Background(), "b", noopWork, nil)), ErrQueueFull)
}
