// Package registry implements the Index Registry (§2 component 4, §4.4):
// the mapping from (typeName, canonical authorization-group key) to a
// SearchIndex record, persisted in the RDF store so indexes survive a
// restart.
//
// The mutex-guarded map and CRUD method set are adapted from the teacher's
// file-backed service registry; the persistence backend is replaced with SPARQL
// triples through an rdf.Client, since §6 specifies registry state lives
// in the RDF store, not a local JSON file.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/evalgo/semindex/apperr"
	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/rdf"
	"github.com/google/uuid"
)

// Registry owns every known SearchIndex, keyed by its partition key
// (§3 "two indexes with the same (typeName, serialized(allowedGroups)) are
// forbidden").
type Registry struct {
	mu      sync.RWMutex
	indexes map[string]*model.SearchIndex

	pool           *rdf.Pool
	persistIndexes bool
	namePrefix     string
}

// Config controls how a Registry persists and names indexes.
type Config struct {
	// PersistIndexes mirrors the persist_indexes config key (§6): when
	// true, registry mutations are written to the RDF store as triples.
	PersistIndexes bool
	// NamePrefix is prepended to synthesized physical index names.
	NamePrefix string
}

// New constructs an empty Registry. Call Load to restore persisted state
// from the RDF store.
func New(pool *rdf.Pool, cfg Config) *Registry {
	return &Registry{
		indexes:        make(map[string]*model.SearchIndex),
		pool:           pool,
		persistIndexes: cfg.PersistIndexes,
		namePrefix:     cfg.NamePrefix,
	}
}

// Get returns the SearchIndex registered under (typeName, groups), if any.
func (r *Registry) Get(typeName string, groups model.AuthorizationGroupSet) (*model.SearchIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.indexes[model.PartitionKey(typeName, groups)]
	return idx, ok
}

// ListByType returns every SearchIndex registered under typeName, across
// all group partitions.
func (r *Registry) ListByType(typeName string) []*model.SearchIndex {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.SearchIndex
	for _, idx := range r.indexes {
		if idx.TypeName == typeName {
			out = append(out, idx)
		}
	}
	return out
}

// All returns every registered SearchIndex.
func (r *Registry) All() []*model.SearchIndex {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.SearchIndex, 0, len(r.indexes))
	for _, idx := range r.indexes {
		out = append(out, idx)
	}
	return out
}

// Create allocates a new SearchIndex for (typeName, groups) if one does not
// already exist, returning the existing one otherwise. Structural changes
// to the registry take the registry-wide write lock (§5).
func (r *Registry) Create(ctx context.Context, typeName string, groups model.AuthorizationGroupSet, eager bool) (*model.SearchIndex, error) {
	key := model.PartitionKey(typeName, groups)

	r.mu.Lock()
	if existing, ok := r.indexes[key]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	name := r.synthesizeName(typeName)
	idx := model.NewSearchIndex(name, name, typeName, groups, eager)
	idx.TransitionTo(model.StatusInvalid)
	r.indexes[key] = idx
	r.mu.Unlock()

	if r.persistIndexes {
		if err := r.persist(ctx, idx); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Remove deletes matching registry entries (engine-side deletion is the
// caller's responsibility, per IndexManager.removeIndexes in §4.4).
func (r *Registry) Remove(ctx context.Context, typeName string, groups *model.AuthorizationGroupSet) error {
	r.mu.Lock()
	var toRemove []string
	for key, idx := range r.indexes {
		if idx.TypeName != typeName {
			continue
		}
		if groups != nil && idx.PartitionKey() != model.PartitionKey(typeName, *groups) {
			continue
		}
		toRemove = append(toRemove, key)
	}
	removed := make([]*model.SearchIndex, 0, len(toRemove))
	for _, key := range toRemove {
		removed = append(removed, r.indexes[key])
		delete(r.indexes, key)
	}
	r.mu.Unlock()

	if !r.persistIndexes {
		return nil
	}
	for _, idx := range removed {
		if err := r.unpersist(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) synthesizeName(typeName string) string {
	suffix := uuid.New().String()
	if r.namePrefix != "" {
		return fmt.Sprintf("%s-%s-%s", r.namePrefix, typeName, suffix)
	}
	return fmt.Sprintf("%s-%s", typeName, suffix)
}

const registryGraphPredicate = "http://semindex.example.org/vocabularies/registry/"

// persist writes idx as triples in the RDF store (one resource bearing
// uri, name, typeName, allowedGroups (JSON), isEager, per §6).
func (r *Registry) persist(ctx context.Context, idx *model.SearchIndex) error {
	client, release, err := r.pool.Acquire(ctx, rdf.ModeSudo, nil)
	if err != nil {
		return err
	}
	defer release()

	groupsJSON := idx.AllowedGroups.Key()
	update := fmt.Sprintf(`INSERT DATA {
  <%s> <%sname> %q .
  <%s> <%stypeName> %q .
  <%s> <%sallowedGroups> %q .
  <%s> <%sisEager> %t .
}`,
		idx.URI, registryGraphPredicate, idx.Name,
		idx.URI, registryGraphPredicate, idx.TypeName,
		idx.URI, registryGraphPredicate, groupsJSON,
		idx.URI, registryGraphPredicate, idx.IsEager,
	)
	return client.Update(ctx, update)
}

func (r *Registry) unpersist(ctx context.Context, idx *model.SearchIndex) error {
	client, release, err := r.pool.Acquire(ctx, rdf.ModeSudo, nil)
	if err != nil {
		return err
	}
	defer release()

	update := fmt.Sprintf(`DELETE WHERE { <%s> ?p ?o . FILTER(STRSTARTS(STR(?p), %q)) }`,
		idx.URI, registryGraphPredicate)
	return client.Update(ctx, update)
}

// Load restores the registry from the RDF store's persisted triples
// (§6 "Registry triples in the RDF store"). Called once at startup when
// persist_indexes is true.
func (r *Registry) Load(ctx context.Context) error {
	if !r.persistIndexes {
		return nil
	}
	client, release, err := r.pool.Acquire(ctx, rdf.ModeSudo, nil)
	if err != nil {
		return err
	}
	defer release()

	query := fmt.Sprintf(`SELECT ?index ?name ?typeName ?allowedGroups ?isEager WHERE {
  ?index <%sname> ?name .
  ?index <%stypeName> ?typeName .
  ?index <%sallowedGroups> ?allowedGroups .
  ?index <%sisEager> ?isEager .
}`, registryGraphPredicate, registryGraphPredicate, registryGraphPredicate, registryGraphPredicate)

	bindings, err := client.Query(ctx, query)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range bindings {
		groups, err := decodeGroupsKey(b["allowedGroups"].Value)
		if err != nil {
			return apperr.New(apperr.Config, "registry.Load", err)
		}
		idx := model.NewSearchIndex(b["index"].Value, b["name"].Value, b["typeName"].Value, groups, b["isEager"].Value == "true")
		idx.TransitionTo(model.StatusInvalid)
		r.indexes[idx.PartitionKey()] = idx
	}
	return nil
}
