// Package httpapi serves catalog entities over HTTP. Each request's query
// string is translated by an apiquery.Factory onto a DuckDB query.
package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/cors"

	"github.com/hugr-lab/apiquery"
	"github.com/hugr-lab/apiquery/auth"
	"github.com/hugr-lab/apiquery/builder"
	"github.com/hugr-lab/apiquery/catalog"
	"github.com/hugr-lab/apiquery/internal/recovery"
	"github.com/hugr-lab/apiquery/internal/reqctx"
	"github.com/hugr-lab/apiquery/internal/serialize"
	"github.com/hugr-lab/apiquery/sqlquery"
)

// ErrInvalidConfig indicates Config validation failed.
var ErrInvalidConfig = errors.New("invalid server config")

// Config contains the server configuration.
type Config struct {
	// DB runs the generated queries.
	// REQUIRED.
	DB sqlquery.Querier

	// Factory translates request parameters.
	// REQUIRED.
	Factory *apiquery.Factory

	// Catalog declares the served entities and their whitelists.
	// OPTIONAL: If nil, every table is served without restrictions
	// and relations are unavailable.
	Catalog catalog.Catalog

	// Auth authenticates requests with bearer tokens. When it also
	// implements auth.EntityAuthorizer, entity access is checked too.
	// OPTIONAL: If nil, requests are not authenticated.
	Auth auth.Authenticator

	// CORSOrigins lists origins allowed to call the API from a browser.
	// OPTIONAL: If empty, no CORS headers are sent.
	CORSOrigins []string

	// Allocator for Arrow responses.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for request and error logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger
}

// Server is the HTTP query API. Safe for concurrent use.
type Server struct {
	db         sqlquery.Querier
	factory    *apiquery.Factory
	catalog    catalog.Catalog
	auth       auth.Authenticator
	allocator  memory.Allocator
	logger     *slog.Logger
	compressor *serialize.Compressor
	handler    http.Handler
}

// New validates config and builds the server.
// Caller must call Close when done.
//
// Example:
//
//	srv, err := httpapi.New(httpapi.Config{DB: db, Factory: f, Catalog: cat})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	http.ListenAndServe(":8080", srv.Handler())
func New(config Config) (*Server, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Use defaults for optional fields
	allocator := config.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	compressor, err := serialize.NewCompressor()
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:         config.DB,
		factory:    config.Factory,
		catalog:    config.Catalog,
		auth:       config.Auth,
		allocator:  allocator,
		logger:     logger,
		compressor: compressor,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /_entities", s.handleEntities)
	mux.HandleFunc("GET /{entity}", s.handleCollection)
	mux.HandleFunc("GET /{entity}/{id}", s.handleFind)

	var h http.Handler = auth.Middleware(config.Auth, mux)
	if len(config.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: config.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Accept", "Accept-Encoding", reqctx.RequestIDHeader},
			ExposedHeaders: []string{headerTotal, headerPage, headerPerPage, headerLastPage, reqctx.RequestIDHeader},
		}).Handler(h)
	}
	h = s.logRequests(h)
	h = recovery.Middleware(logger, h)
	s.handler = reqctx.Middleware(h)

	logger.Info("HTTP query API configured",
		"has_catalog", config.Catalog != nil,
		"has_auth", config.Auth != nil,
		"cors_origins", len(config.CORSOrigins),
	)

	return s, nil
}

// validateConfig checks that required Config fields are valid.
func validateConfig(config Config) error {
	if config.DB == nil {
		return errors.New("db is required")
	}
	if config.Factory == nil {
		return errors.New("factory is required")
	}
	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close releases server resources.
func (s *Server) Close() error {
	return s.compressor.Close()
}

// handleEntities lists the catalog entities and their whitelists.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	if negotiate(r) == formatArrow {
		var body []byte
		if s.catalog != nil {
			data, err := serialize.SerializeEntities(s.catalog, s.allocator)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			body = data
		}
		s.write(w, r, formatArrow, body)
		return
	}

	infos := []serialize.EntityInfo{}
	if s.catalog != nil {
		infos = serialize.Describe(s.catalog)
	}
	s.encode(w, r, negotiate(r), map[string]any{"data": infos})
}

// handleCollection serves GET /{entity}.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("entity")
	entity, ok := s.prepare(w, r, name)
	if !ok {
		return
	}

	q := sqlquery.New(s.db, s.catalog, name)
	h := s.factory.FromRequest(r, q, entity)

	page, err := recovery.RecoverToValue(s.logger, "collection", func() (*builder.Page, error) {
		return h.Collection(r.Context())
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if page.Pagination != nil {
		setPaginationHeaders(w, page.Pagination)
	}
	s.respond(w, r, page, page.Items, columnsOf(q, h))
}

// handleFind serves GET /{entity}/{id}.
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("entity")
	entity, ok := s.prepare(w, r, name)
	if !ok {
		return
	}

	q := sqlquery.New(s.db, s.catalog, name)
	h := s.factory.FromRequest(r, q, entity)

	row, err := recovery.RecoverToValue(s.logger, "find", func() (builder.Row, error) {
		return h.Find(r.Context(), r.PathValue("id"))
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respond(w, r, map[string]any{"data": row}, []builder.Row{row}, columnsOf(q, h))
}

// prepare resolves the entity and checks access to it.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request, name string) (catalog.Entity, bool) {
	var entity catalog.Entity
	if s.catalog != nil {
		e, ok := s.catalog.Entity(name)
		if !ok {
			s.writeError(w, r, http.StatusNotFound, fmt.Errorf("%w: %s", sqlquery.ErrUnknownEntity, name))
			return nil, false
		}
		entity = e
	}

	if err := auth.AuthorizeEntity(r.Context(), s.auth, name); err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return entity, true
}

// columnsOf returns the result columns: the base columns followed by the
// eager-loaded relations.
func columnsOf(q *sqlquery.Query, h *apiquery.Handler) []string {
	columns := append([]string(nil), q.Columns()...)
	return append(columns, h.Relations()...)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, builder.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, sqlquery.ErrUnknownEntity),
		errors.Is(err, sqlquery.ErrUnknownRelation),
		errors.Is(err, sqlquery.ErrUnsupportedOperator):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, statusFor(err), err)
}

// writeError logs err and writes it as a JSON error body. Internal errors
// are not exposed to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "request_id", requestID(r), "error", err)
		message = http.StatusText(status)
	} else {
		s.logger.Debug("Request rejected", "path", r.URL.Path, "request_id", requestID(r), "status", status, "error", err)
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	writeJSON(w, map[string]any{"error": message})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs one line per served request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", requestID(r),
		)
	})
}

func requestID(r *http.Request) string {
	id, _ := reqctx.RequestIDFromContext(r.Context())
	return id
}
