// Package indexmanager implements the Index Manager (§2 component 8, §4.4):
// it owns the decision of when a SearchIndex exists, is fresh, and may be
// used to serve a search request, fanning out bulk (re)builds, invalidation,
// and removal across the authorization-group partitions of a type.
//
// The readiness gate as a one-shot broadcast event paired with status
// transitions under the index's own mutex is grounded on model.ReadyGate
// (itself grounded on the close-channel broadcast idiom used throughout the
// teacher's auth package for propagating a single state change to many
// waiting goroutines); the bounded-timeout wait composing with
// context.Context is the same composition the teacher's redis repository
// uses for command deadlines.
package indexmanager

import (
	"context"
	"time"

	"github.com/evalgo/semindex/builder"
	"github.com/evalgo/semindex/metrics"
	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/rdf"
	"github.com/evalgo/semindex/registry"
	"github.com/evalgo/semindex/search"
	"github.com/evalgo/semindex/telemetry"
)

// DefaultWaitTimeout is the bound on a search request waiting for an index
// mid-rebuild to settle (§4.4 "Readiness gate").
const DefaultWaitTimeout = 60 * time.Second

// DefaultBulkBatchSize is the page size for discoverSubjects when
// batch_size is unset (§6 "page size for bulk index building").
const DefaultBulkBatchSize = 500

// Config controls a Manager's defaults and eager pre-build set.
type Config struct {
	WaitTimeout time.Duration
	// EagerGroups lists the group combinations pre-built at startup, per
	// the eager_indexing_groups config key (§6).
	EagerGroups []model.AuthorizationGroupSet
	Metrics     *metrics.Recorder
	// DefaultSettings is the engine-specific index settings template
	// applied when a physical index is first allocated (§6 "default_settings").
	DefaultSettings map[string]interface{}
	// BatchSize pages subject discovery during bulk builds; MaxBatches
	// caps the number of pages fetched per build (§6).
	BatchSize  int
	MaxBatches int
}

// Manager owns index lifecycle decisions on top of the Index Registry.
type Manager struct {
	reg     *registry.Registry
	pool    *rdf.Pool
	builder *builder.Builder
	search  *search.Pool
	types   map[string]*model.TypeDefinition

	waitTimeout     time.Duration
	eagerGroups     []model.AuthorizationGroupSet
	metrics         *metrics.Recorder
	defaultSettings map[string]interface{}
	batchSize       int
	maxBatches      int
}

// New constructs a Manager over the given registry, RDF pool, document
// builder, and search pool, against the configured set of type definitions.
func New(reg *registry.Registry, pool *rdf.Pool, b *builder.Builder, searchPool *search.Pool, types map[string]*model.TypeDefinition, cfg Config) *Manager {
	waitTimeout := cfg.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBulkBatchSize
	}
	return &Manager{
		reg:             reg,
		pool:            pool,
		builder:         b,
		search:          searchPool,
		types:           types,
		waitTimeout:     waitTimeout,
		eagerGroups:     cfg.EagerGroups,
		metrics:         cfg.Metrics,
		defaultSettings: cfg.DefaultSettings,
		batchSize:       batchSize,
		maxBatches:      cfg.MaxBatches,
	}
}

// FetchIndexes resolves the SearchIndex for (typeName, allowedGroups),
// creating and building it if absent, or rebuilding it if invalid or
// forceUpdate is set, then returns it alongside every other index
// registered under typeName (§4.4 "Return the set of SearchIndexes for the
// requested typeName across the applicable group-partitions").
func (m *Manager) FetchIndexes(ctx context.Context, typeName string, allowedGroups model.AuthorizationGroupSet, forceUpdate bool) ([]*model.SearchIndex, error) {
	canonical := allowedGroups.Canonicalize()

	idx, ok := m.reg.Get(typeName, canonical)
	if !ok {
		created, err := m.reg.Create(ctx, typeName, canonical, false)
		if err != nil {
			return nil, err
		}
		idx = created
		m.metrics.Record(metrics.EventIndexCreated, typeName, canonical.Key(), "", idx.Name)
	}

	if idx.Status() == model.StatusInvalid || forceUpdate {
		if err := m.rebuild(ctx, idx); err != nil {
			return nil, err
		}
	}

	return m.reg.ListByType(typeName), nil
}

// InvalidateIndexes flips matching indexes' status to invalid in memory
// only, leaving engine contents and registry entries untouched (§4.4).
// A nil typeName matches every type; a nil groups matches every partition
// of the matched types.
func (m *Manager) InvalidateIndexes(typeName *string, groups *model.AuthorizationGroupSet) {
	for _, idx := range m.matching(typeName, groups) {
		idx.TransitionTo(model.StatusInvalid)
		m.metrics.Record(metrics.EventIndexInvalidated, idx.TypeName, idx.AllowedGroups.Canonicalize().Key(), "", idx.Name)
	}
}

// RemoveIndexes deletes matching physical engine indexes and their registry
// entries (§4.4).
func (m *Manager) RemoveIndexes(ctx context.Context, typeName *string, groups *model.AuthorizationGroupSet) error {
	for _, idx := range m.matching(typeName, groups) {
		client, release, err := m.search.Acquire(ctx)
		if err != nil {
			return err
		}
		err = client.DeleteIndex(ctx, idx.Name)
		release()
		if err != nil {
			return err
		}
		if err := m.reg.Remove(ctx, idx.TypeName, &idx.AllowedGroups); err != nil {
			return err
		}
		m.metrics.Record(metrics.EventIndexRemoved, idx.TypeName, idx.AllowedGroups.Canonicalize().Key(), "", idx.Name)
	}
	return nil
}

// WaitUntilReady blocks the caller until index's status is no longer
// updating, the configured wait timeout elapses, or ctx is cancelled,
// whichever comes first, returning false on timeout/cancellation (§4.4).
func (m *Manager) WaitUntilReady(ctx context.Context, idx *model.SearchIndex) bool {
	waitCtx, cancel := context.WithTimeout(ctx, m.waitTimeout)
	defer cancel()
	return idx.Gate().Wait(waitCtx)
}

// PreBuildEager builds every (type, eager group combination) index
// configured for eager indexing, at startup (§4.4 "Eager indexes").
func (m *Manager) PreBuildEager(ctx context.Context) error {
	log := telemetry.Component("indexmanager")
	for typeName := range m.types {
		for _, groups := range m.eagerGroups {
			idx, err := m.reg.Create(ctx, typeName, groups.Canonicalize(), true)
			if err != nil {
				return err
			}
			if err := m.rebuild(ctx, idx); err != nil {
				log.WithError(err).WithField("type", typeName).Warn("eager index pre-build failed")
			}
		}
	}
	return nil
}

func (m *Manager) matching(typeName *string, groups *model.AuthorizationGroupSet) []*model.SearchIndex {
	var candidates []*model.SearchIndex
	if typeName != nil {
		candidates = m.reg.ListByType(*typeName)
	} else {
		candidates = m.reg.All()
	}
	if groups == nil {
		return candidates
	}
	key := groups.Canonicalize().Key()
	out := candidates[:0:0]
	for _, idx := range candidates {
		if idx.AllowedGroups.Canonicalize().Key() == key {
			out = append(out, idx)
		}
	}
	return out
}
