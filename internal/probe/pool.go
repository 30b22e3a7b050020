package probe

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of blocking probe calls running at once.
//
// A call that has started cannot be interrupted. When the caller's context
// is cancelled, Run stops waiting and returns ctx.Err(); the call keeps its
// slot until it returns on its own and its result is dropped.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool returns a pool with size slots. A size below 1 is treated as 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// Run acquires a slot, runs fn in its own goroutine and waits for its
// result or for ctx to be done, whichever comes first.
// fn must honour the context it receives to bound its own run time.
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	type result struct {
		value T
		err   error
	}
	// Buffered so that an abandoned call can always deliver and exit.
	done := make(chan result, 1)

	go func() {
		defer p.sem.Release(1)
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
