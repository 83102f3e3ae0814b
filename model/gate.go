package model

import (
	"context"
	"sync"
)

// ReadyGate is a one-shot broadcast event owned by a SearchIndex (Design
// Note: "mutable SearchIndex with concurrent waiters"). It is set on
// entering status valid or invalid, and reset on entering status updating.
// Status transitions and gate set/reset must be paired under the owning
// SearchIndex's mutex to exclude the lost-wakeup race where a waiter
// observes a stale status between an unguarded reset and set.
type ReadyGate struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewReadyGate returns a gate in the "set" (ready) state, matching a newly
// created SearchIndex, whose initial status (invalid) is not updating.
func NewReadyGate() *ReadyGate {
	g := &ReadyGate{ch: make(chan struct{})}
	close(g.ch)
	return g
}

// Set opens the gate, releasing any current and future waiters until the
// next Reset.
func (g *ReadyGate) Set() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		// already open
	default:
		close(g.ch)
	}
}

// Reset closes the gate, so subsequent Wait calls block until the next Set.
func (g *ReadyGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		g.ch = make(chan struct{})
	default:
		// already closed
	}
}

// Wait blocks until the gate is set, the context is done, or timeout
// elapses, whichever comes first. It returns false on timeout/cancellation,
// matching IndexManager.waitUntilReady's "return false on timeout" contract
// (§4.4).
func (g *ReadyGate) Wait(ctx context.Context) bool {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}
