// Package pool implements a fixed-size resource checkout pool, the shape
// §4.5 and §5 require for RDF client handles and search engine clients:
// a small fixed number of long-lived handles, acquired with a bounded
// timeout and always released on every exit path including failure.
//
// The package is adapted from the teacher's worker.Pool/Worker job-
// processing pool (start/stop lifecycle, bounded concurrency) into a
// resource-checkout pool, since nothing in the example corpus ships a
// generic object pool and this is the natural generalization of that
// shape to "N reusable client handles" instead of "N job-processing
// goroutines".
package pool

import (
	"context"
	"time"

	"github.com/evalgo/semindex/apperr"
)

// DefaultAcquireTimeout bounds Acquire when the caller's context carries no
// deadline of its own.
const DefaultAcquireTimeout = 3 * time.Second

// Fixed is a fixed-size pool of resources of type T, created once at
// startup via a factory function and handed out on Acquire.
type Fixed[T any] struct {
	slots chan T
}

// New creates a pool of size n, filling every slot immediately by calling
// factory. factory errors abort construction (pools are built once at
// startup, where a fatal failure is the correct disposition per the
// AMBIENT STACK's error-handling convention).
func New[T any](n int, factory func() (T, error)) (*Fixed[T], error) {
	p := &Fixed[T]{slots: make(chan T, n)}
	for i := 0; i < n; i++ {
		v, err := factory()
		if err != nil {
			return nil, err
		}
		p.slots <- v
	}
	return p, nil
}

// Acquire blocks until a resource is available or ctx is done, whichever
// comes first; a ctx without a deadline is bounded by DefaultAcquireTimeout.
// Pool exhaustion past that deadline surfaces as
// apperr.Transient per §5 ("pool exhaustion surfaces as a transient
// error"). The caller must call the returned release func on every exit
// path to return the resource to the pool.
func (p *Fixed[T]) Acquire(ctx context.Context) (T, func(), error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultAcquireTimeout)
		defer cancel()
	}
	select {
	case v := <-p.slots:
		released := false
		release := func() {
			if released {
				return
			}
			released = true
			p.slots <- v
		}
		return v, release, nil
	case <-ctx.Done():
		var zero T
		return zero, func() {}, apperr.New(apperr.Transient, "pool.Acquire", ctx.Err())
	}
}

// Size returns the pool's fixed capacity.
func (p *Fixed[T]) Size() int {
	return cap(p.slots)
}
