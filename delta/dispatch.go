package delta

import (
	"context"

	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/rdf"
)

// dispatchType runs Stages 3a-3d for one TypeDefinition affected by this
// work item's triples: it discovers every root subject whose document
// under typeDef may have changed, then enqueues an update for each.
func (h *Handler) dispatchType(ctx context.Context, triples []model.Triple, typeDef *model.TypeDefinition) {
	known := make(map[string]struct{})

	// Stage 3a: triples that assert/retract membership in one of typeDef's
	// rdf:types name the root subject directly, no query needed.
	for _, t := range triples {
		if t.Predicate.Value != model.RDFTypePredicate {
			continue
		}
		if !typeDef.HasRDFType(t.Object.Value) {
			continue
		}
		known[t.Subject.Value] = struct{}{}
	}

	// Stage 3b: group the remaining triples into shape buckets keyed by
	// (path, position, inverse, isAddition). A literal bound through a
	// forward edge at a non-terminal path position is discarded: it can
	// never itself be an intermediate node's identity, so no edge in the
	// path could produce it. Inverse edges keep the match.
	buckets := make(map[shapeKey]*shapeBucket)
	var order []shapeKey
	for _, t := range triples {
		if t.Predicate.Value == model.RDFTypePredicate {
			continue
		}
		for _, p := range typeDef.Properties {
			for _, pos := range p.Path.Positions(t.Predicate.Value) {
				edge := p.Path.EdgeAt(pos)
				if edge.Predicate != t.Predicate.Value {
					continue
				}
				if !edge.Inverse && pos < len(p.Path)-1 && t.Object.IsLiteral() {
					continue
				}
				// A forward edge at position 0 names the root subject
				// directly; if it is already in the known-subjects set
				// (via Stage 3a), no discovery query can add anything.
				if pos == 0 && !edge.Inverse {
					if _, ok := known[t.Subject.Value]; ok {
						continue
					}
				}
				key := shapeKey{
					pathStr:    p.Path.String(),
					position:   pos,
					inverse:    edge.Inverse,
					isAddition: t.IsAddition,
				}
				bucket, exists := buckets[key]
				if !exists {
					bucket = &shapeBucket{
						path:       p.Path,
						position:   pos,
						inverse:    edge.Inverse,
						isAddition: t.IsAddition,
					}
					buckets[key] = bucket
					order = append(order, key)
				}
				bucket.triples = append(bucket.triples, t)
			}
		}
	}

	// Stage 3c: one batched discovery query per shape bucket chunk, run
	// with a sudo-scoped client so discovery is authorization-blind.
	for _, key := range order {
		bucket := buckets[key]
		for _, batch := range chunk(bucket.triples, h.batchSize) {
			b := *bucket
			b.triples = batch
			subjects, err := h.queryShape(ctx, typeDef, b)
			if err != nil {
				h.log.WithError(err).WithField("type", typeDef.Name).Warn("shape discovery query failed")
				continue
			}
			for _, s := range subjects {
				known[s] = struct{}{}
			}
		}
	}

	// Stage 3d: route every discovered root subject down the configured
	// update path (§6 "automatic_index_updates"). The Document-Builder path
	// rebuilds each subject's document; the Invalidating path marks
	// typeDef's indexes stale in one call rather than per subject.
	if !h.automaticIndexUpdates {
		if len(known) > 0 {
			h.manager.InvalidateIndexes(&typeDef.Name, nil)
		}
		return
	}
	for subject := range known {
		h.updateQueue.AddUpdate(subject, typeDef.Name)
	}
}

func (h *Handler) queryShape(ctx context.Context, typeDef *model.TypeDefinition, b shapeBucket) ([]string, error) {
	client, release, err := h.pool.Acquire(ctx, rdf.ModeSudo, nil)
	if err != nil {
		return nil, err
	}
	defer release()

	sparql := buildShapeQuery(typeDef.RDFTypes, b)
	bindings, err := client.Query(ctx, sparql)
	if err != nil {
		return nil, err
	}

	subjects := make([]string, 0, len(bindings))
	for _, row := range bindings {
		if term, ok := row["s"]; ok {
			subjects = append(subjects, term.Value)
		}
	}
	return subjects, nil
}
