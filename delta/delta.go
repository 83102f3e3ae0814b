// Package delta implements the Delta Handler (§2 component 7, §4.1):
// it turns incoming RDF triple-diffs into (rootSubject, typeName) updates
// fed to the Update Handler, discovering root subjects with the minimum
// number of batched RDF queries.
package delta

import (
	"context"
	"sync"

	"github.com/evalgo/semindex/indexmanager"
	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/rdf"
	"github.com/evalgo/semindex/telemetry"
	"github.com/evalgo/semindex/updatequeue"
	"github.com/sirupsen/logrus"
)

// DefaultBatchSize is the VALUES-clause row count per discovery query
// (§4.1 Stage 3c).
const DefaultBatchSize = 100

// Changeset is one inserts/deletes pair as received at the HTTP boundary.
// IsAddition on each triple is set by Submit, not by the caller.
type Changeset struct {
	Inserts []model.Triple
	Deletes []model.Triple
}

// Config configures a Handler.
type Config struct {
	UUIDPredicate string
	BatchSize     int
	// AutomaticIndexUpdates selects the update propagation path (§6): true
	// routes discovered subjects through the Document-Builder path
	// (updateQueue.AddUpdate); false routes them through the Invalidating
	// path (manager.InvalidateIndexes), marking affected indexes stale
	// instead of rebuilding them immediately.
	AutomaticIndexUpdates bool
}

type workItem struct {
	triples []model.Triple
	configs []*model.TypeDefinition
}

// Handler owns the dispatch queue and the single dispatcher goroutine
// that drains it (§4.1 Stage 3, §5).
type Handler struct {
	types                 map[string]*model.TypeDefinition
	pool                  *rdf.Pool
	updateQueue           *updatequeue.Handler
	manager               *indexmanager.Manager
	uuidPredicate         string
	batchSize             int
	automaticIndexUpdates bool

	mu     sync.Mutex
	cond   *sync.Cond
	items  []workItem
	closed bool
	wg     sync.WaitGroup

	log *logrus.Entry
}

// New constructs a Handler over the given type definitions. manager is
// consulted for the Invalidating path when cfg.AutomaticIndexUpdates is
// false.
func New(types map[string]*model.TypeDefinition, pool *rdf.Pool, uq *updatequeue.Handler, manager *indexmanager.Manager, cfg Config) *Handler {
	uuidPredicate := cfg.UUIDPredicate
	if uuidPredicate == "" {
		uuidPredicate = model.DefaultUUIDPredicate
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	h := &Handler{
		types:                 types,
		pool:                  pool,
		updateQueue:           uq,
		manager:               manager,
		uuidPredicate:         uuidPredicate,
		batchSize:             batchSize,
		automaticIndexUpdates: cfg.AutomaticIndexUpdates,
		log:                   telemetry.Component("delta"),
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Start launches the single dispatcher goroutine (§5: "a single dispatcher
// goroutine drains the queue").
func (h *Handler) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.dispatchLoop(ctx)
}

// Stop closes the dispatch queue and waits for the dispatcher to drain it.
func (h *Handler) Stop() {
	h.mu.Lock()
	h.closed = true
	h.cond.Broadcast()
	h.mu.Unlock()
	h.wg.Wait()
}

// Submit runs Stage 1 (ingest) and Stage 2 (per-triple configuration
// lookup), then enqueues one work item for the dispatcher.
func (h *Handler) Submit(changesets []Changeset) {
	triples := h.ingest(changesets)
	if len(triples) == 0 {
		return
	}

	configs := h.affectedTypes(triples)
	if len(configs) == 0 {
		return
	}

	h.mu.Lock()
	wasEmpty := len(h.items) == 0
	h.items = append(h.items, workItem{triples: triples, configs: configs})
	if wasEmpty {
		h.cond.Broadcast()
	}
	h.mu.Unlock()
}

// ingest merges inserts and deletes into one flat, tagged triple list and
// drops triples on the platform UUID predicate (§4.1 Stage 1).
func (h *Handler) ingest(changesets []Changeset) []model.Triple {
	var out []model.Triple
	for _, cs := range changesets {
		for _, t := range cs.Inserts {
			t.IsAddition = true
			if t.Predicate.Value == h.uuidPredicate {
				continue
			}
			out = append(out, t)
		}
		for _, t := range cs.Deletes {
			t.IsAddition = false
			if t.Predicate.Value == h.uuidPredicate {
				continue
			}
			out = append(out, t)
		}
	}
	return out
}

// affectedTypes computes the union, across all triples, of TypeDefinitions
// each triple affects (§4.1 Stage 2).
func (h *Handler) affectedTypes(triples []model.Triple) []*model.TypeDefinition {
	seen := make(map[string]*model.TypeDefinition)
	for _, t := range triples {
		if t.Predicate.Value == model.RDFTypePredicate {
			for _, typeDef := range h.types {
				if typeDef.HasRDFType(t.Object.Value) {
					seen[typeDef.Name] = typeDef
				}
			}
			continue
		}
		for _, typeDef := range h.types {
			if len(typeDef.PropertiesReferencing(t.Predicate.Value)) > 0 {
				seen[typeDef.Name] = typeDef
			}
		}
	}
	out := make([]*model.TypeDefinition, 0, len(seen))
	for _, typeDef := range seen {
		out = append(out, typeDef)
	}
	return out
}

func (h *Handler) dispatchLoop(ctx context.Context) {
	defer h.wg.Done()
	for {
		item, ok := h.nextItem()
		if !ok {
			return
		}
		for _, typeDef := range item.configs {
			h.dispatchType(ctx, item.triples, typeDef)
		}
	}
}

func (h *Handler) nextItem() (workItem, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		if len(h.items) > 0 {
			item := h.items[0]
			h.items = h.items[1:]
			return item, true
		}
		if h.closed {
			return workItem{}, false
		}
		h.cond.Wait()
	}
}
