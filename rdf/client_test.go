package rdf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evalgo/semindex/model"
	"github.com/stretchr/testify/require"
)

func groupSetFixture() model.AuthorizationGroupSet {
	return model.AuthorizationGroupSet{
		{Name: "session", Variables: []string{"abc-123"}},
	}
}

type testEnv struct {
	server *httptest.Server
	client *Client
}

func setup(handler http.HandlerFunc) *testEnv {
	srv := httptest.NewServer(handler)
	return &testEnv{
		server: srv,
		client: New(srv.URL, "semindex", "", ""),
	}
}

func (e *testEnv) teardown() {
	e.server.Close()
}

func TestQueryDecodesBindings(t *testing.T) {
	env := setup(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/sparql-results+json" {
			t.Errorf("unexpected accept header: %s", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write([]byte(`{
			"head": {"vars": ["s"]},
			"results": {"bindings": [
				{"s": {"type": "uri", "value": "http://example.org/s1"}}
			]}
		}`))
	})
	defer env.teardown()

	bindings, err := env.client.Query(context.Background(), "SELECT ?s WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	require.Equal(t, "http://example.org/s1", bindings[0]["s"].Value)
}

func TestAskSudoSetsHeader(t *testing.T) {
	env := setup(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerSudo) != "true" {
			t.Errorf("expected sudo header to be set")
		}
		w.Write([]byte(`{"boolean": true}`))
	})
	defer env.teardown()

	err := env.client.HealthCheck(context.Background())
	require.NoError(t, err)
}

func TestGroupScopedSetsAllowedGroupsHeader(t *testing.T) {
	var seen string
	env := setup(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(headerGroups)
		w.Write([]byte(`{"results": {"bindings": []}}`))
	})
	defer env.teardown()

	groups := groupSetFixture()
	scoped := env.client.Scoped(ModeGroupScoped, groups)
	_, err := scoped.Query(context.Background(), "SELECT ?s WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	require.Equal(t, groups.Key(), seen)
}

func TestQueryRetriesOnTransientFailure(t *testing.T) {
	attempts := 0
	env := setup(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"results": {"bindings": []}}`))
	})
	defer env.teardown()

	_, err := env.client.Query(context.Background(), "SELECT ?s WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestQueryBadRequestIsNotRetried(t *testing.T) {
	attempts := 0
	env := setup(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	})
	defer env.teardown()

	_, err := env.client.Query(context.Background(), "SELECT malformed")
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}
