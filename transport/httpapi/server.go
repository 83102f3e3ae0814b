// Package httpapi exposes the delta ingestion, search, and health surface
// over HTTP, grounded on cli/root.go's echo.New()/middleware.Logger()/
// middleware.Recover() server setup and graceful-shutdown pattern.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/evalgo/semindex/delta"
	"github.com/evalgo/semindex/indexmanager"
	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/rdf"
	"github.com/evalgo/semindex/search"
	"github.com/evalgo/semindex/telemetry"
)

// AllowedGroupsHeader carries the caller's authorization groups as a JSON
// array of {name, variables} (§6).
const AllowedGroupsHeader = "MU-AUTH-ALLOWED-GROUPS"

// SudoHeader, when present with any value, marks a request as sudo-scoped.
const SudoHeader = "authorization-sudo"

// Config controls which optional routes Server registers.
type Config struct {
	EnableRawDSLEndpoint bool
	JWTSigningKey        []byte
}

// Server wires the HTTP surface to the Delta Handler and Index Manager.
type Server struct {
	echo    *echo.Echo
	delta   *delta.Handler
	manager *indexmanager.Manager
	rdfPool *rdf.Pool
	search  *search.Pool
	cfg     Config
}

// New constructs a Server and registers its routes.
func New(deltaHandler *delta.Handler, manager *indexmanager.Manager, rdfPool *rdf.Pool, searchPool *search.Pool, cfg Config) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{echo: e, delta: deltaHandler, manager: manager, rdfPool: rdfPool, search: searchPool, cfg: cfg}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.handleHealthz)
	s.echo.POST("/update", s.handleUpdate)
	s.echo.GET("/search", s.handleSearch)

	if s.cfg.EnableRawDSLEndpoint {
		protected := s.echo.Group("/raw")
		protected.Use(echojwt.WithConfig(echojwt.Config{
			SigningKey:  s.cfg.JWTSigningKey,
			TokenLookup: "header:Authorization:Bearer ",
		}))
		protected.POST("/:index/_search", s.handleRawQuery)
	}
}

// Start runs the HTTP server on addr until ctx is done, then shuts it down
// within a bounded grace period.
func (s *Server) Start(ctx context.Context, addr string) error {
	log := telemetry.Component("httpapi")

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(c echo.Context) error {
	ctx := c.Request().Context()
	client, release, err := s.rdfPool.Acquire(ctx, rdf.ModeDefault, nil)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
	}
	defer release()

	if err := client.HealthCheck(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpdate implements the §6 delta ingestion contract: decode a JSON
// array of changesets, synchronously accept, hand off to the Delta Handler
// asynchronously.
func (s *Server) handleUpdate(c echo.Context) error {
	var wire []wireChangeset
	if err := json.NewDecoder(c.Request().Body).Decode(&wire); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid changeset body"})
	}

	changesets, err := decodeChangesets(wire)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	s.delta.Submit(changesets)
	return c.NoContent(http.StatusAccepted)
}

// handleSearch resolves the SearchIndexes visible to the caller for a type
// and waits for them to settle, returning their names and status. No query
// language is specified here (§1 Non-goals); callers needing document
// results use the raw DSL passthrough when enabled.
func (s *Server) handleSearch(c echo.Context) error {
	typeName := c.QueryParam("type")
	if typeName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "type query parameter is required"})
	}

	groups, err := allowedGroupsFromRequest(c.Request())
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx := c.Request().Context()
	indexes, err := s.manager.FetchIndexes(ctx, typeName, groups, c.QueryParam("force") == "true")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	type indexStatus struct {
		Name   string `json:"name"`
		Status string `json:"status"`
		Ready  bool   `json:"ready"`
	}
	out := make([]indexStatus, 0, len(indexes))
	for _, idx := range indexes {
		ready := s.manager.WaitUntilReady(ctx, idx)
		out = append(out, indexStatus{Name: idx.Name, Status: string(idx.Status()), Ready: ready})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"indexes": out})
}

func (s *Server) handleRawQuery(c echo.Context) error {
	index := c.Param("index")
	var raw json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid query body"})
	}

	client, release, err := s.search.Acquire(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer release()

	result, err := client.RawQuery(c.Request().Context(), index, raw)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSONBlob(http.StatusOK, result)
}

func allowedGroupsFromRequest(r *http.Request) (model.AuthorizationGroupSet, error) {
	header := r.Header.Get(AllowedGroupsHeader)
	if header == "" {
		return nil, nil
	}
	var wire []wireAuthGroup
	if err := json.Unmarshal([]byte(header), &wire); err != nil {
		return nil, err
	}
	return decodeAllowedGroups(wire), nil
}
