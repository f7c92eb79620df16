package task

import (
	"context"
	"fmt"
)

// Go submits typed work without blocking; see Dispatcher.Submit.
func Go[T any](ctx context.Context, d *Dispatcher, name string, work func(ctx context.Context) (T, error), onDone func(T, error)) {
	d.Submit(ctx, name, erase(work), func(result any, err error) {
		v, err := cast[T](result, err)
		onDone(v, err)
	})
}

// Await runs typed work on the pool and waits for it; see
// Dispatcher.SubmitBlocking.
func Await[T any](ctx context.Context, d *Dispatcher, name string, work func(ctx context.Context) (T, error)) (T, error) {
	return cast[T](d.SubmitBlocking(ctx, name, erase(work)))
}

func erase[T any](work func(ctx context.Context) (T, error)) Work {
	return func(ctx context.Context) (any, error) {
		v, err := work(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func cast[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	v, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("task result has type %T, want %T", result, zero)
	}
	return v, nil
}
