package app

import (
	"context"
	"sync"
)

// Lazy builds a value on first use and keeps it for the life of the
// execution environment. A failed build is not cached: the next Get tries
// again, so a database that was briefly unreachable at cold start does not
// fail every later invocation.
type Lazy[T any] struct {
	mu    sync.Mutex
	build func(ctx context.Context) (T, error)
	value T
	done  bool
}

func NewLazy[T any](build func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{build: build}
}

// Get returns the built value, building it first if no earlier call succeeded.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return l.value, nil
	}
	v, err := l.build(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	l.value, l.done = v, true
	return v, nil
}
