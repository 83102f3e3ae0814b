package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/rdf"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, handler http.HandlerFunc) (*rdf.Pool, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	p, err := rdf.NewPool(2, srv.URL, "semindex", "", "")
	require.NoError(t, err)
	return p, srv.Close
}

func TestCreateIsIdempotentForSamePartition(t *testing.T) {
	p, teardown := newTestPool(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	defer teardown()

	reg := New(p, Config{PersistIndexes: false})
	groups := model.AuthorizationGroupSet{{Name: "session", Variables: []string{"x"}}}

	idx1, err := reg.Create(context.Background(), "session", groups, false)
	require.NoError(t, err)
	idx2, err := reg.Create(context.Background(), "session", groups, false)
	require.NoError(t, err)
	require.Same(t, idx1, idx2)
}

func TestDistinctGroupsGetDistinctIndexes(t *testing.T) {
	p, teardown := newTestPool(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	defer teardown()

	reg := New(p, Config{PersistIndexes: false})
	g1 := model.AuthorizationGroupSet{{Name: "a", Variables: []string{"1"}}}
	g2 := model.AuthorizationGroupSet{{Name: "b", Variables: []string{"2"}}}

	idx1, err := reg.Create(context.Background(), "session", g1, false)
	require.NoError(t, err)
	idx2, err := reg.Create(context.Background(), "session", g2, false)
	require.NoError(t, err)
	require.NotEqual(t, idx1.URI, idx2.URI)
}

func TestPersistWritesUpdateToRDFStore(t *testing.T) {
	var gotUpdate string
	p, teardown := newTestPool(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if u := r.FormValue("update"); u != "" {
			gotUpdate = u
		}
		w.Write([]byte(`{}`))
	})
	defer teardown()

	reg := New(p, Config{PersistIndexes: true})
	groups := model.AuthorizationGroupSet{{Name: "session", Variables: []string{"x"}}}

	_, err := reg.Create(context.Background(), "session", groups, false)
	require.NoError(t, err)
	require.Contains(t, gotUpdate, "INSERT DATA")
}

func TestLoadRestoresPersistedIndexes(t *testing.T) {
	p, teardown := newTestPool(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.FormValue("query") != "" {
			w.Header().Set("Content-Type", "application/sparql-results+json")
			w.Write([]byte(`{"results":{"bindings":[{
				"index": {"type": "uri", "value": "http://semindex.example.org/indexes/session-abc"},
				"name": {"type": "literal", "value": "semindex-session-abc"},
				"typeName": {"type": "literal", "value": "session"},
				"allowedGroups": {"type": "literal", "value": "[{\"name\":\"session\",\"variables\":[\"x\"]}]"},
				"isEager": {"type": "literal", "value": "true"}
			}]}}`))
			return
		}
		w.Write([]byte(`{}`))
	})
	defer teardown()

	reg := New(p, Config{PersistIndexes: true})
	require.NoError(t, reg.Load(context.Background()))

	indexes := reg.ListByType("session")
	require.Len(t, indexes, 1)
	require.Equal(t, "semindex-session-abc", indexes[0].Name)
	require.True(t, indexes[0].IsEager)
	require.Equal(t, model.StatusInvalid, indexes[0].Status())
}

func TestLoadIsNoopWhenPersistenceDisabled(t *testing.T) {
	p, teardown := newTestPool(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Load must not query the RDF store when persist_indexes is false")
	})
	defer teardown()

	reg := New(p, Config{PersistIndexes: false})
	require.NoError(t, reg.Load(context.Background()))
	require.Empty(t, reg.All())
}

func TestRemoveDropsFromRegistry(t *testing.T) {
	p, teardown := newTestPool(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	defer teardown()

	reg := New(p, Config{PersistIndexes: false})
	groups := model.AuthorizationGroupSet{{Name: "session", Variables: []string{"x"}}}

	_, err := reg.Create(context.Background(), "session", groups, false)
	require.NoError(t, err)
	require.NoError(t, reg.Remove(context.Background(), "session", &groups))

	_, ok := reg.Get("session", groups)
	require.False(t, ok)
}
