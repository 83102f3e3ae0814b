package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evalgo/semindex/builder"
	"github.com/evalgo/semindex/delta"
	"github.com/evalgo/semindex/extractor"
	"github.com/evalgo/semindex/indexmanager"
	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/rdf"
	"github.com/evalgo/semindex/registry"
	"github.com/evalgo/semindex/search"
	"github.com/evalgo/semindex/updatequeue"
	"github.com/stretchr/testify/require"
)

const (
	personType     = "http://example.org/vocab/Person"
	titlePredicate = "http://example.org/vocab/title"
	subjectURI     = "http://example.org/res/1"
)

func sparqlJSON(w http.ResponseWriter, ask *bool, bindings []map[string]map[string]string) {
	w.Header().Set("Content-Type", "application/sparql-results+json")
	if ask != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"boolean": *ask})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"results": map[string]interface{}{"bindings": bindings},
	})
}

func standardRDFHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		q := r.FormValue("query")
		switch {
		case strings.Contains(q, "ASK"):
			ok := true
			sparqlJSON(w, &ok, nil)
		case strings.Contains(q, "VALUES ?type"):
			sparqlJSON(w, nil, []map[string]map[string]string{{"s": {"type": "uri", "value": subjectURI}}})
		case strings.Contains(q, model.DefaultUUIDPredicate):
			sparqlJSON(w, nil, []map[string]map[string]string{{"v": {"type": "literal", "value": "abc"}}})
		case strings.Contains(q, titlePredicate):
			sparqlJSON(w, nil, []map[string]map[string]string{{"v": {"type": "literal", "value": "Hello"}}})
		default:
			sparqlJSON(w, nil, nil)
		}
	}
}

func personTypeDef(t *testing.T) *model.TypeDefinition {
	t.Helper()
	path, err := model.ParsePath([]string{titlePredicate})
	require.NoError(t, err)
	return &model.TypeDefinition{
		Name:     "person",
		RDFTypes: []string{personType},
		Properties: []model.PropertyDefinition{
			{Name: "title", Path: path, Kind: model.KindSimple},
		},
	}
}

func newTestServer(t *testing.T, rdfHandler, searchHandler http.HandlerFunc, cfg Config) *Server {
	t.Helper()
	rdfSrv := httptest.NewServer(rdfHandler)
	t.Cleanup(rdfSrv.Close)
	searchSrv := httptest.NewServer(searchHandler)
	t.Cleanup(searchSrv.Close)

	rdfPool, err := rdf.NewPool(1, rdfSrv.URL, "semindex", "", "")
	require.NoError(t, err)

	extractorClient, err := extractor.New("http://unused.invalid", t.TempDir(), 0)
	require.NoError(t, err)

	types := map[string]*model.TypeDefinition{"person": personTypeDef(t)}
	b := builder.New(rdfPool, extractorClient, types, builder.Config{})
	reg := registry.New(rdfPool, registry.Config{PersistIndexes: false})

	searchPool, err := search.NewPool(1, searchSrv.URL, "", "")
	require.NoError(t, err)

	uq := updatequeue.New(b, reg, searchPool, updatequeue.Config{WaitInterval: 5 * time.Millisecond, WorkerCount: 1})
	require.NoError(t, uq.Start(context.Background()))
	t.Cleanup(func() { uq.Stop(context.Background()) })

	manager := indexmanager.New(reg, rdfPool, b, searchPool, types, indexmanager.Config{})

	dh := delta.New(types, rdfPool, uq, manager, delta.Config{AutomaticIndexUpdates: true})
	dh.Start(context.Background())
	t.Cleanup(dh.Stop)

	return New(dh, manager, rdfPool, searchPool, cfg)
}

func TestHandleHealthzReportsOKWhenRDFStoreReachable(t *testing.T) {
	srv := newTestServer(t, standardRDFHandler(), func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }, Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleUpdateAcceptsChangesetAndReturns202(t *testing.T) {
	srv := newTestServer(t, standardRDFHandler(), func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }, Config{})

	body := `[{"inserts":[{"subject":{"type":"uri","value":"http://example.org/res/1"},"predicate":{"type":"uri","value":"http://www.w3.org/1999/02/22-rdf-syntax-ns#type"},"object":{"type":"uri","value":"http://example.org/vocab/Person"}}],"deletes":[]}]`
	req := httptest.NewRequest(http.MethodPost, "/update", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandleUpdateRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t, standardRDFHandler(), func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }, Config{})

	req := httptest.NewRequest(http.MethodPost, "/update", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearchRequiresTypeParameter(t *testing.T) {
	srv := newTestServer(t, standardRDFHandler(), func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }, Config{})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearchBuildsAndReturnsIndexStatus(t *testing.T) {
	var upserted int32
	srv := newTestServer(t, standardRDFHandler(), func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			atomic.AddInt32(&upserted, 1)
		}
		w.WriteHeader(http.StatusOK)
	}, Config{})

	req := httptest.NewRequest(http.MethodGet, "/search?type=person", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int32(1), atomic.LoadInt32(&upserted))

	var out struct {
		Indexes []struct {
			Status string `json:"status"`
			Ready  bool   `json:"ready"`
		} `json:"indexes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Indexes, 1)
	require.Equal(t, "valid", out.Indexes[0].Status)
	require.True(t, out.Indexes[0].Ready)
}

func TestRawDSLEndpointDisabledByDefault(t *testing.T) {
	srv := newTestServer(t, standardRDFHandler(), func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }, Config{})

	req := httptest.NewRequest(http.MethodPost, "/raw/person/_search", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
