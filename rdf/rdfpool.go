package rdf

import (
	"context"

	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/pool"
)

// Pool is the fixed-size pool of RDF client handles from §4.5 (default
// size 4). A checked-out handle is scoped to the requested mode for the
// duration of the checkout and returned to the pool in its base (default)
// configuration on release.
type Pool struct {
	inner *pool.Fixed[*Client]
}

// NewPool creates a pool of n base clients against the given RDF4J server
// and repository.
func NewPool(n int, baseURL, repository, username, password string) (*Pool, error) {
	inner, err := pool.New(n, func() (*Client, error) {
		return New(baseURL, repository, username, password), nil
	})
	if err != nil {
		return nil, err
	}
	return &Pool{inner: inner}, nil
}

// Acquire checks out a client scoped to mode/groups, returning a release
// func that must be called on every exit path (§5 "every borrowed pool
// client is guaranteed released on all exit paths").
func (p *Pool) Acquire(ctx context.Context, mode Mode, groups model.AuthorizationGroupSet) (*Client, func(), error) {
	base, release, err := p.inner.Acquire(ctx)
	if err != nil {
		return nil, func() {}, err
	}
	return base.Scoped(mode, groups), release, nil
}

// Size returns the pool's fixed capacity.
func (p *Pool) Size() int {
	return p.inner.Size()
}
