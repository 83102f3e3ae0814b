package delta

import (
	"testing"

	"github.com/evalgo/semindex/model"
	"github.com/stretchr/testify/require"
)

func mustPath(t *testing.T, segments ...string) model.Path {
	t.Helper()
	p, err := model.ParsePath(segments)
	require.NoError(t, err)
	return p
}

func TestBuildShapeQueryDeletionAtRoot(t *testing.T) {
	path := mustPath(t, "http://example.org/vocab/name")
	b := shapeBucket{
		path:       path,
		position:   0,
		isAddition: false,
		triples: []model.Triple{
			{Subject: model.NewURI("http://example.org/res/1"), Predicate: model.NewURI(path[0].Predicate)},
		},
	}
	q := buildShapeQuery([]string{"http://example.org/vocab/Person"}, b)
	require.Contains(t, q, "VALUES (?s) { (<http://example.org/res/1>) }")
	require.Contains(t, q, "?s a ?type .")
	require.NotContains(t, q, "?target_sub")
}

func TestBuildShapeQueryDeletionBeyondRoot(t *testing.T) {
	path := mustPath(t, "http://example.org/vocab/address", "http://example.org/vocab/city")
	b := shapeBucket{
		path:       path,
		position:   1,
		isAddition: false,
		triples: []model.Triple{
			{Subject: model.NewURI("http://example.org/addr/1"), Predicate: model.NewURI(path[1].Predicate)},
		},
	}
	q := buildShapeQuery([]string{"http://example.org/vocab/Person"}, b)
	require.Contains(t, q, "VALUES (?target_sub) { (<http://example.org/addr/1>) }")
	require.Contains(t, q, "?s <http://example.org/vocab/address> ?target_sub .")
}

func TestBuildShapeQueryDeletionBeyondRootInverse(t *testing.T) {
	path := mustPath(t, "http://example.org/vocab/org", "^http://example.org/vocab/ownedBy")
	b := shapeBucket{
		path:       path,
		position:   1,
		inverse:    true,
		isAddition: false,
		triples: []model.Triple{
			{
				Subject: model.NewURI("http://example.org/org/1"),
				Object:  model.NewURI("http://example.org/person/1"),
			},
		},
	}
	q := buildShapeQuery([]string{"http://example.org/vocab/Person"}, b)
	require.Contains(t, q, "VALUES (?target_sub) { (<http://example.org/person/1>) }")
	require.Contains(t, q, "?s <http://example.org/vocab/org> ?target_sub .")
}

func TestBuildShapeQueryAdditionAtRootForward(t *testing.T) {
	path := mustPath(t, "http://example.org/vocab/name")
	b := shapeBucket{
		path:       path,
		position:   0,
		isAddition: true,
		triples: []model.Triple{
			{
				Subject: model.NewURI("http://example.org/res/1"),
				Object:  model.NewLiteral("Ada"),
			},
		},
	}
	q := buildShapeQuery([]string{"http://example.org/vocab/Person"}, b)
	require.Contains(t, q, `VALUES (?s ?obj) { (<http://example.org/res/1> "Ada") }`)
	require.Contains(t, q, "?s <http://example.org/vocab/name> ?obj .")
}

func TestBuildShapeQueryAdditionAtRootInverse(t *testing.T) {
	path := mustPath(t, "^http://example.org/vocab/memberOf")
	b := shapeBucket{
		path:       path,
		position:   0,
		inverse:    true,
		isAddition: true,
		triples: []model.Triple{
			{
				Subject: model.NewURI("http://example.org/person/1"),
				Object:  model.NewURI("http://example.org/group/1"),
			},
		},
	}
	q := buildShapeQuery([]string{"http://example.org/vocab/Group"}, b)
	require.Contains(t, q, "VALUES (?s ?triple_sub) { (<http://example.org/group/1> <http://example.org/person/1>) }")
	require.Contains(t, q, "?triple_sub <http://example.org/vocab/memberOf> ?s .")
}

func TestBuildShapeQueryAdditionAtRootWithSuffix(t *testing.T) {
	path := mustPath(t, "http://example.org/vocab/address", "http://example.org/vocab/city")
	b := shapeBucket{
		path:       path,
		position:   0,
		isAddition: true,
		triples: []model.Triple{
			{
				Subject: model.NewURI("http://example.org/res/1"),
				Object:  model.NewURI("http://example.org/addr/1"),
			},
		},
	}
	q := buildShapeQuery([]string{"http://example.org/vocab/Person"}, b)
	require.Contains(t, q, "?s <http://example.org/vocab/address> ?obj .")
	require.Contains(t, q, "?obj <http://example.org/vocab/city> ?pathTail .")
}

func TestChunkSplitsIntoBoundedSlices(t *testing.T) {
	triples := make([]model.Triple, 5)
	chunks := chunk(triples, 2)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 2)
	require.Len(t, chunks[2], 1)
}
