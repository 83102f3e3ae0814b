package builder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evalgo/semindex/extractor"
	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/rdf"
	"github.com/stretchr/testify/require"
)

const titlePredicate = "http://example.org/vocab/title"
const authorPredicate = "http://example.org/vocab/author"
const namePredicate = "http://example.org/vocab/name"
const personType = "http://example.org/vocab/Person"

func mustPath(t *testing.T, segments ...string) model.Path {
	t.Helper()
	p, err := model.ParsePath(segments)
	require.NoError(t, err)
	return p
}

// sparqlResult writes a minimal RDF4J-shaped SPARQL-results-JSON body for
// either an ASK or a SELECT query, depending on what the request contains.
func sparqlResult(w http.ResponseWriter, ask *bool, bindings []map[string]map[string]string) {
	w.Header().Set("Content-Type", "application/sparql-results+json")
	if ask != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"boolean": *ask})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"results": map[string]interface{}{"bindings": bindings},
	})
}

func newTestBuilder(t *testing.T, handler http.HandlerFunc, types map[string]*model.TypeDefinition) *Builder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	pool, err := rdf.NewPool(1, srv.URL, "semindex", "", "")
	require.NoError(t, err)
	extractorClient, err := extractor.New("http://unused.invalid", t.TempDir(), 0)
	require.NoError(t, err)
	return New(pool, extractorClient, types, Config{
		AttachmentsPathBase:    "/data/files",
		AttachmentSchemePrefix: "share://",
	})
}

func formQuery(r *http.Request) string {
	r.ParseForm()
	if q := r.FormValue("query"); q != "" {
		return q
	}
	return r.FormValue("update")
}

func TestBuildDocumentSimpleProperties(t *testing.T) {
	personDef := &model.TypeDefinition{
		Name:     "person",
		RDFTypes: []string{personType},
		Properties: []model.PropertyDefinition{
			{Name: "title", Path: mustPath(t, titlePredicate), Kind: model.KindSimple},
		},
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		q := formQuery(r)
		switch {
		case strings.Contains(q, "ASK"):
			ok := true
			sparqlResult(w, &ok, nil)
		case strings.Contains(q, model.DefaultUUIDPredicate):
			sparqlResult(w, nil, []map[string]map[string]string{
				{"v": {"type": "literal", "value": "abc-123"}},
			})
		case strings.Contains(q, titlePredicate):
			sparqlResult(w, nil, []map[string]map[string]string{
				{"v": {"type": "literal", "value": "Hello World"}},
			})
		default:
			t.Fatalf("unexpected query: %s", q)
		}
	}

	b := newTestBuilder(t, handler, map[string]*model.TypeDefinition{"person": personDef})
	doc, err := b.BuildDocument(context.Background(), "http://example.org/res/1", "person", nil)
	require.NoError(t, err)
	require.Equal(t, "abc-123", doc["uuid"])
	require.Equal(t, "Hello World", doc["title"])
}

func TestBuildDocumentReturnsNilWhenTypeCheckFails(t *testing.T) {
	personDef := &model.TypeDefinition{Name: "person", RDFTypes: []string{personType}}

	handler := func(w http.ResponseWriter, r *http.Request) {
		ok := false
		sparqlResult(w, &ok, nil)
	}

	b := newTestBuilder(t, handler, map[string]*model.TypeDefinition{"person": personDef})
	doc, err := b.BuildDocument(context.Background(), "http://example.org/res/1", "person", nil)
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestBuildDocumentLanguageStringGroupsByLanguage(t *testing.T) {
	personDef := &model.TypeDefinition{
		Name:     "person",
		RDFTypes: []string{personType},
		Properties: []model.PropertyDefinition{
			{Name: "label", Path: mustPath(t, namePredicate), Kind: model.KindLanguageString},
		},
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		q := formQuery(r)
		switch {
		case strings.Contains(q, "ASK"):
			ok := true
			sparqlResult(w, &ok, nil)
		case strings.Contains(q, model.DefaultUUIDPredicate):
			sparqlResult(w, nil, nil)
		case strings.Contains(q, namePredicate):
			sparqlResult(w, nil, []map[string]map[string]string{
				{"v": {"type": "literal", "value": "Bonjour", "xml:lang": "fr"}},
				{"v": {"type": "literal", "value": "Salut", "xml:lang": "fr"}},
				{"v": {"type": "literal", "value": "Hello", "xml:lang": "en"}},
			})
		default:
			t.Fatalf("unexpected query: %s", q)
		}
	}

	b := newTestBuilder(t, handler, map[string]*model.TypeDefinition{"person": personDef})
	doc, err := b.BuildDocument(context.Background(), "http://example.org/res/1", "person", nil)
	require.NoError(t, err)
	label := doc["label"].(map[string]interface{})
	require.ElementsMatch(t, []interface{}{"Bonjour", "Salut"}, label["fr"])
	require.Equal(t, "Hello", label["en"])
}

func TestBuildDocumentNestedSubDocument(t *testing.T) {
	personDef := &model.TypeDefinition{
		Name:     "person",
		RDFTypes: []string{personType},
		Properties: []model.PropertyDefinition{
			{
				Name: "author",
				Path: mustPath(t, authorPredicate),
				Kind: model.KindNested,
				SubProperties: []model.PropertyDefinition{
					{Name: "title", Path: mustPath(t, titlePredicate), Kind: model.KindSimple},
				},
			},
		},
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		q := formQuery(r)
		switch {
		case strings.Contains(q, "ASK"):
			ok := true
			sparqlResult(w, &ok, nil)
		case strings.Contains(q, model.DefaultUUIDPredicate):
			sparqlResult(w, nil, nil)
		case strings.Contains(q, authorPredicate):
			sparqlResult(w, nil, []map[string]map[string]string{
				{"v": {"type": "uri", "value": "http://example.org/res/author-1"}},
			})
		case strings.Contains(q, titlePredicate):
			sparqlResult(w, nil, []map[string]map[string]string{
				{"v": {"type": "literal", "value": "Dr."}},
			})
		default:
			t.Fatalf("unexpected query: %s", q)
		}
	}

	b := newTestBuilder(t, handler, map[string]*model.TypeDefinition{"person": personDef})
	doc, err := b.BuildDocument(context.Background(), "http://example.org/res/1", "person", nil)
	require.NoError(t, err)
	author := doc["author"].(map[string]interface{})
	require.Equal(t, "http://example.org/res/author-1", author["uri"])
	require.Equal(t, "Dr.", author["title"])
}

func TestBuildDocumentComposite(t *testing.T) {
	nameDef := &model.TypeDefinition{
		Name:     "name-facet",
		RDFTypes: []string{personType},
		Properties: []model.PropertyDefinition{
			{Name: "name", Path: mustPath(t, namePredicate), Kind: model.KindSimple},
		},
	}
	titleDef := &model.TypeDefinition{
		Name:     "title-facet",
		RDFTypes: []string{personType},
		Properties: []model.PropertyDefinition{
			{Name: "title", Path: mustPath(t, titlePredicate), Kind: model.KindSimple},
		},
	}
	composite := &model.TypeDefinition{
		Name:        "person",
		CompositeOf: []string{"name-facet", "title-facet"},
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		q := formQuery(r)
		switch {
		case strings.Contains(q, "ASK"):
			ok := true
			sparqlResult(w, &ok, nil)
		case strings.Contains(q, model.DefaultUUIDPredicate):
			sparqlResult(w, nil, []map[string]map[string]string{
				{"v": {"type": "literal", "value": "same-uuid"}},
			})
		case strings.Contains(q, namePredicate):
			sparqlResult(w, nil, []map[string]map[string]string{
				{"v": {"type": "literal", "value": "Ada"}},
			})
		case strings.Contains(q, titlePredicate):
			sparqlResult(w, nil, []map[string]map[string]string{
				{"v": {"type": "literal", "value": "Countess"}},
			})
		default:
			t.Fatalf("unexpected query: %s", q)
		}
	}

	b := newTestBuilder(t, handler, map[string]*model.TypeDefinition{
		"person":      composite,
		"name-facet":  nameDef,
		"title-facet": titleDef,
	})
	doc, err := b.BuildDocument(context.Background(), "http://example.org/res/1", "person", nil)
	require.NoError(t, err)
	require.Equal(t, "Ada", doc["name"])
	require.Equal(t, "Countess", doc["title"])
	require.Equal(t, "same-uuid", doc["uuid"])
}

func TestResolveAttachmentPathStripsSchemePrefix(t *testing.T) {
	b := &Builder{cfg: Config{AttachmentsPathBase: "/data/files", AttachmentSchemePrefix: "share://"}}
	require.Equal(t, "/data/files/docs/a.pdf", b.resolveAttachmentPath("share://docs/a.pdf"))
}

