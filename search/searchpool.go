package search

import (
	"context"

	"github.com/evalgo/semindex/pool"
)

// Pool is a fixed-size pool of search engine client handles.
type Pool struct {
	inner *pool.Fixed[*Client]
}

// NewPool creates a pool of n clients against the given search engine.
func NewPool(n int, baseURL, username, password string) (*Pool, error) {
	inner, err := pool.New(n, func() (*Client, error) {
		return New(baseURL, username, password), nil
	})
	if err != nil {
		return nil, err
	}
	return &Pool{inner: inner}, nil
}

// Acquire checks out a client, returning a release func that must be
// called on every exit path.
func (p *Pool) Acquire(ctx context.Context) (*Client, func(), error) {
	return p.inner.Acquire(ctx)
}
