package indexmanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/evalgo/semindex/metrics"
	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/rdf"
)

// rebuild runs the bulk build dispatched by FetchIndexes/PreBuildEager: it
// transitions idx to updating, materializes and upserts a document for
// every subject of idx's type currently visible under idx's allowed groups,
// and transitions idx to valid on success or back to invalid on failure, so
// no waiter ever observes a permanently closed gate (§4.4).
func (m *Manager) rebuild(ctx context.Context, idx *model.SearchIndex) error {
	typeDef, ok := m.types[idx.TypeName]
	if !ok {
		return fmt.Errorf("indexmanager: unknown type %q", idx.TypeName)
	}

	idx.TransitionToUpdating()

	if err := m.ensureAllocated(ctx, idx); err != nil {
		idx.TransitionTo(model.StatusInvalid)
		return err
	}

	if err := m.bulkBuild(ctx, idx, typeDef); err != nil {
		idx.TransitionTo(model.StatusInvalid)
		return err
	}

	idx.TransitionTo(model.StatusValid)
	m.metrics.Record(metrics.EventIndexBuilt, idx.TypeName, idx.AllowedGroups.Canonicalize().Key(), "", idx.Name)
	return nil
}

// ensureAllocated creates idx's physical index in the search engine under
// its synthesized name, using the configured engine-specific settings
// template, before any document is ever built into it (§4.4, §6
// "default_settings"). A pre-existing index is left untouched.
func (m *Manager) ensureAllocated(ctx context.Context, idx *model.SearchIndex) error {
	client, release, err := m.search.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	exists, err := client.IndexExists(ctx, idx.Name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.CreateIndex(ctx, idx.Name, m.defaultSettings)
}

func (m *Manager) bulkBuild(ctx context.Context, idx *model.SearchIndex, typeDef *model.TypeDefinition) error {
	rdfClient, releaseRDF, err := m.pool.Acquire(ctx, rdf.ModeGroupScoped, idx.AllowedGroups)
	if err != nil {
		return err
	}
	subjects, err := discoverSubjects(ctx, rdfClient, typeDef.RDFTypes, m.batchSize, m.maxBatches)
	releaseRDF()
	if err != nil {
		return err
	}

	searchClient, releaseSearch, err := m.search.Acquire(ctx)
	if err != nil {
		return err
	}
	defer releaseSearch()

	for _, subject := range subjects {
		doc, err := m.builder.BuildDocument(ctx, subject, typeDef.Name, idx.AllowedGroups)
		if err != nil {
			return err
		}
		id := model.DocumentID(subject)
		if doc == nil {
			if err := searchClient.DeleteDocument(ctx, idx.Name, id); err != nil {
				return err
			}
			continue
		}
		if err := searchClient.UpsertDocument(ctx, idx.Name, id, doc); err != nil {
			return err
		}
	}
	return nil
}

// discoverSubjects pages through every subject of rdfTypes in batches of
// batchSize, stopping once a page returns fewer than batchSize rows or, if
// maxBatches is positive, once that many pages have been fetched (§6
// "batch_size"/"max_batches").
func discoverSubjects(ctx context.Context, client *rdf.Client, rdfTypes []string, batchSize, maxBatches int) ([]string, error) {
	values := make([]string, len(rdfTypes))
	for i, t := range rdfTypes {
		values[i] = fmt.Sprintf("<%s>", t)
	}
	valuesClause := strings.Join(values, " ")

	var subjects []string
	for page := 0; maxBatches <= 0 || page < maxBatches; page++ {
		query := fmt.Sprintf(`SELECT DISTINCT ?s WHERE { VALUES ?type { %s } ?s a ?type . } ORDER BY ?s LIMIT %d OFFSET %d`,
			valuesClause, batchSize, page*batchSize)

		bindings, err := client.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, b := range bindings {
			if term, ok := b["s"]; ok {
				subjects = append(subjects, term.Value)
			}
		}
		if len(bindings) < batchSize {
			break
		}
	}
	return subjects, nil
}
