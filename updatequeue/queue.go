// Package updatequeue implements the Update Handler (§2 component 6,
// §4.2): a debounced FIFO of per-subject updates, fed by the Delta
// Handler, drained by a bounded pool of worker goroutines that call the
// Document Builder and the Search Engine Client.
//
// The FIFO-plus-sidecar-map shape and the condvar-with-timer-goroutine
// eligibility wait are grounded on the core queue policy; the worker
// pool's start/stop lifecycle is grounded on the teacher's worker.Pool.
package updatequeue

import (
	"sync"
	"time"

	"github.com/evalgo/semindex/model"
)

// DefaultWaitInterval is the minimum age an entry must reach before a
// worker may dequeue it (§3 "Update queue entry", §4.2).
const DefaultWaitInterval = 60 * time.Second

type entry struct {
	subject   string
	kind      model.UpdateKind
	timestamp time.Time
}

// queue is the FIFO of live subjects plus the sidecar type-name map. At
// most one entry is live per subject; later calls for the same subject
// only grow its sidecar set (§3, §4.2 queue policy).
type queue struct {
	mu           sync.Mutex
	cond         *sync.Cond
	waitInterval time.Duration
	closed       bool

	order   []string
	entries map[string]*entry
	sidecar map[string]map[string]struct{}
}

func newQueue(waitInterval time.Duration) *queue {
	if waitInterval <= 0 {
		waitInterval = DefaultWaitInterval
	}
	q := &queue{
		waitInterval: waitInterval,
		entries:      make(map[string]*entry),
		sidecar:      make(map[string]map[string]struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// add enqueues (subject, typeName) under kind, or, if subject already has
// a live entry, merely adds typeName to its sidecar set.
func (q *queue) add(subject, typeName string, kind model.UpdateKind) {
	q.mu.Lock()
	if _, live := q.entries[subject]; !live {
		q.entries[subject] = &entry{subject: subject, kind: kind, timestamp: time.Now()}
		q.sidecar[subject] = make(map[string]struct{})
		wasEmpty := len(q.order) == 0
		q.order = append(q.order, subject)
		if wasEmpty {
			q.cond.Broadcast()
		}
	}
	q.sidecar[subject][typeName] = struct{}{}
	q.mu.Unlock()
}

// dequeue blocks until the head entry is eligible (age >= waitInterval),
// the queue is closed, or a new insertion changes what's eligible. ok is
// false only once the queue has been closed and drained of waiters.
func (q *queue) dequeue() (subject string, typeNames []string, kind model.UpdateKind, ok bool) {
	q.mu.Lock()
	for {
		if q.closed {
			q.mu.Unlock()
			return "", nil, "", false
		}
		if len(q.order) == 0 {
			q.cond.Wait()
			continue
		}

		head := q.order[0]
		e := q.entries[head]
		age := time.Since(e.timestamp)
		if age < q.waitInterval {
			remaining := q.waitInterval - age
			go q.wakeAfter(remaining)
			q.cond.Wait()
			continue
		}

		q.order = q.order[1:]
		delete(q.entries, head)
		typeSet := q.sidecar[head]
		delete(q.sidecar, head)
		kind = e.kind
		q.mu.Unlock()

		names := make([]string, 0, len(typeSet))
		for name := range typeSet {
			names = append(names, name)
		}
		return head, names, kind, true
	}
}

func (q *queue) wakeAfter(d time.Duration) {
	time.Sleep(d)
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}

// close stops the queue; blocked and future dequeue calls return ok=false.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

type persistedEntry struct {
	Subject   string          `json:"subject"`
	Kind      model.UpdateKind `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Types     []string        `json:"types"`
}

type snapshot struct {
	Entries []persistedEntry `json:"entries"`
}

// snapshot captures the queue's current state for durable persistence
// (§4.2 "every 5 minutes... serialized atomically").
func (q *queue) snapshot() snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]persistedEntry, 0, len(q.order))
	for _, subject := range q.order {
		e := q.entries[subject]
		types := make([]string, 0, len(q.sidecar[subject]))
		for t := range q.sidecar[subject] {
			types = append(types, t)
		}
		out = append(out, persistedEntry{
			Subject:   subject,
			Kind:      e.kind,
			Timestamp: e.timestamp,
			Types:     types,
		})
	}
	return snapshot{Entries: out}
}

// restore replaces the queue's contents with a previously persisted
// snapshot. Called once at startup, before any worker is started.
func (q *queue) restore(s snapshot) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.order = q.order[:0]
	q.entries = make(map[string]*entry, len(s.Entries))
	q.sidecar = make(map[string]map[string]struct{}, len(s.Entries))

	for _, pe := range s.Entries {
		q.order = append(q.order, pe.Subject)
		q.entries[pe.Subject] = &entry{subject: pe.Subject, kind: pe.Kind, timestamp: pe.Timestamp}
		set := make(map[string]struct{}, len(pe.Types))
		for _, t := range pe.Types {
			set[t] = struct{}{}
		}
		q.sidecar[pe.Subject] = set
	}
}
