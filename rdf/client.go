// Package rdf implements the RDF Client Pool of §4.5: a SPARQL 1.1
// Query/Update client speaking the RDF4J HTTP protocol, in the three
// authorization modes the rest of the pipeline needs (sudo, group-scoped,
// default), pooled, with retry-with-quadratic-backoff on transient
// failures.
//
// The HTTP conventions (Basic Auth, Accept: application/sparql-results+json,
// POST-with-form-body updates) are grounded on the teacher's RDF4J
// repository client.
package rdf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/evalgo/semindex/apperr"
	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/retry"
	"github.com/evalgo/semindex/telemetry"
)

// Mode selects which out-of-band authorization header, if any, a Client
// attaches to its requests (§4.5).
type Mode string

const (
	ModeSudo        Mode = "sudo"
	ModeGroupScoped Mode = "group_scoped"
	ModeDefault     Mode = "default"
)

const (
	headerSudo   = "authorization-sudo"
	headerGroups = "allowed-groups"
)

// Client is a single SPARQL endpoint handle, scoped to one authorization
// mode at construction time.
type Client struct {
	BaseURL    string
	Repository string
	Username   string
	Password   string

	mode   Mode
	groups model.AuthorizationGroupSet

	httpClient *http.Client
}

// New constructs a default-mode Client against the given RDF4J server and
// repository. Use Scoped to derive group-scoped or default-mode copies.
func New(baseURL, repository, username, password string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Repository: repository,
		Username:   username,
		Password:   password,
		mode:       ModeDefault,
		httpClient: &http.Client{},
	}
}

// Scoped returns a shallow copy of the client configured for mode, carrying
// groups when mode is ModeGroupScoped.
func (c *Client) Scoped(mode Mode, groups model.AuthorizationGroupSet) *Client {
	cp := *c
	cp.mode = mode
	cp.groups = groups
	return &cp
}

func (c *Client) statementsURL() string {
	return fmt.Sprintf("%s/repositories/%s/statements", c.BaseURL, c.Repository)
}

func (c *Client) applyAuthHeaders(req *http.Request) {
	switch c.mode {
	case ModeSudo:
		req.Header.Set(headerSudo, "true")
	case ModeGroupScoped:
		req.Header.Set(headerGroups, c.groups.Key())
	case ModeDefault:
		// neither header: upstream store uses the incoming request's
		// identity, per §4.5.
	}
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
}

// sparqlValue is one bound variable's value, in RDF4J's SPARQL-results-JSON
// shape.
type sparqlValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

func (v sparqlValue) term() model.Term {
	if v.Type == "uri" || v.Type == "bnode" {
		return model.NewURI(v.Value)
	}
	if v.Lang != "" {
		return model.NewLangLiteral(v.Value, v.Lang)
	}
	if v.Datatype != "" {
		return model.NewTypedLiteral(v.Value, v.Datatype)
	}
	return model.NewLiteral(v.Value)
}

type sparqlResultBody struct {
	Bindings []map[string]sparqlValue `json:"bindings"`
}

type sparqlSelectResponse struct {
	Head    map[string][]string `json:"head"`
	Results sparqlResultBody    `json:"results"`
}

type sparqlAskResponse struct {
	Boolean bool `json:"boolean"`
}

// Binding is one SELECT result row, keyed by variable name.
type Binding map[string]model.Term

// Query runs a SPARQL SELECT and returns the decoded bindings, retrying
// transient failures with quadratic backoff (§4.1 Failure semantics,
// §4.5).
func (c *Client) Query(ctx context.Context, sparql string) ([]Binding, error) {
	var bindings []Binding
	err := retry.Do(ctx, "rdf.Query", func() error {
		b, err := c.doSelect(ctx, sparql)
		if err != nil {
			return err
		}
		bindings = b
		return nil
	})
	return bindings, err
}

func (c *Client) doSelect(ctx context.Context, sparql string) ([]Binding, error) {
	form := url.Values{"query": {sparql}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.statementsURL(),
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")
	c.applyAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.Transient, "rdf.Query", err)
	}
	defer resp.Body.Close()

	if err := statusToErr(resp, "rdf.Query"); err != nil {
		return nil, err
	}

	var parsed sparqlSelectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.New(apperr.Transient, "rdf.Query", err)
	}

	out := make([]Binding, 0, len(parsed.Results.Bindings))
	for _, row := range parsed.Results.Bindings {
		b := make(Binding, len(row))
		for k, v := range row {
			b[k] = v.term()
		}
		out = append(out, b)
	}
	return out, nil
}

// Ask runs a SPARQL ASK query, used both by domain code and by the pool's
// health check (a trivial ASK { ?s ?p ?o } under sudo, per §4.5).
func (c *Client) Ask(ctx context.Context, sparql string) (bool, error) {
	var result bool
	err := retry.Do(ctx, "rdf.Ask", func() error {
		form := url.Values{"query": {sparql}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.statementsURL(),
			strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/sparql-results+json")
		c.applyAuthHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.New(apperr.Transient, "rdf.Ask", err)
		}
		defer resp.Body.Close()

		if err := statusToErr(resp, "rdf.Ask"); err != nil {
			return err
		}
		var parsed sparqlAskResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return apperr.New(apperr.Transient, "rdf.Ask", err)
		}
		result = parsed.Boolean
		return nil
	})
	return result, err
}

// Update runs a SPARQL Update (INSERT DATA / DELETE DATA / etc.), retrying
// transient failures per §4.5.
func (c *Client) Update(ctx context.Context, sparqlUpdate string) error {
	return retry.Do(ctx, "rdf.Update", func() error {
		form := url.Values{"update": {sparqlUpdate}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.statementsURL(),
			strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		c.applyAuthHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.New(apperr.Transient, "rdf.Update", err)
		}
		defer resp.Body.Close()
		return statusToErr(resp, "rdf.Update")
	})
}

// HealthCheck issues the trivial ASK health probe under sudo, per §4.5.
func (c *Client) HealthCheck(ctx context.Context) error {
	sudo := c.Scoped(ModeSudo, nil)
	ok, err := sudo.Ask(ctx, "ASK { ?s ?p ?o }")
	if err != nil {
		return err
	}
	if !ok {
		telemetry.Component("rdf").Warn("health check ASK returned false on a non-empty store assumption")
	}
	return nil
}

func statusToErr(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return apperr.New(apperr.BadRequest, op, fmt.Errorf("%d: %s", resp.StatusCode, body))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperr.New(apperr.Unauthorized, op, fmt.Errorf("%d: %s", resp.StatusCode, body))
	case resp.StatusCode == http.StatusNotFound:
		return apperr.New(apperr.NotFound, op, fmt.Errorf("%d: %s", resp.StatusCode, body))
	case resp.StatusCode >= 500:
		return apperr.New(apperr.Transient, op, fmt.Errorf("%d: %s", resp.StatusCode, body))
	default:
		return apperr.New(apperr.Transient, op, fmt.Errorf("%d: %s", resp.StatusCode, body))
	}
}
