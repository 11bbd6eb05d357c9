// File path: internal/api/server.go

// Package api exposes the schema and query pipeline over HTTP. Responses use
// a uniform envelope: {"success": true, ...} on acceptance and
// {"success": false, "error": ..., "kind": ...} on failure, with the error
// kind mapped onto the HTTP status.
package api

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"nl2mongo/internal/catalog"
	"nl2mongo/internal/common"
	"nl2mongo/internal/errs"
	"nl2mongo/internal/history"
	"nl2mongo/internal/llm"
	"nl2mongo/internal/query"
	"nl2mongo/internal/schema"
)

// Backend is the slice of the document store the handlers use directly.
type Backend interface {
	CollectionNames(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Dependencies wires the server to the pipeline components. History is
// optional; everything else is required.
type Dependencies struct {
	Backend   Backend
	Catalog   *catalog.Catalog
	Generator *schema.Generator
	Converter *query.Generator
	Validator *query.Validator
	Executor  *query.Executor
	History   *history.Store
	Provider  llm.Provider
}

// Config controls request-level defaults of the API surface.
type Config struct {
	// SampleSize is the per-collection document budget a generate-schema
	// request falls back to when it does not name one.
	SampleSize int
	// HistoryLimit and LogLimit are the default page sizes of the
	// corresponding read endpoints.
	HistoryLimit int
	LogLimit     int
}

// DefaultConfig returns the standard configuration used when no overrides
// are provided.
func DefaultConfig() Config {
	return Config{
		SampleSize:   100,
		HistoryLimit: 50,
		LogLimit:     100,
	}
}

// Merge overlays positive values from the override onto the base
// configuration.
func (c Config) Merge(override Config) Config {
	result := c
	if override.SampleSize > 0 {
		result.SampleSize = override.SampleSize
	}
	if override.HistoryLimit > 0 {
		result.HistoryLimit = override.HistoryLimit
	}
	if override.LogLimit > 0 {
		result.LogLimit = override.LogLimit
	}
	return result
}

type Server struct {
	router    chi.Router
	backend   Backend
	catalog   *catalog.Catalog
	generator *schema.Generator
	converter *query.Generator
	validator *query.Validator
	executor  *query.Executor
	history   *history.Store
	provider  llm.Provider
	cfg       Config
}

func NewServer(deps Dependencies, cfg *Config) (*Server, error) {
	logger := common.Logger()
	if deps.Backend == nil {
		return nil, fmt.Errorf("backend store required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("schema generator required")
	}
	if deps.Converter == nil || deps.Validator == nil || deps.Executor == nil {
		return nil, fmt.Errorf("query pipeline required")
	}
	configuration := DefaultConfig()
	if cfg != nil {
		configuration = configuration.Merge(*cfg)
	}
	providerName := "unknown"
	if deps.Provider != nil {
		providerName = deps.Provider.Name()
	}
	logger.Info("api: building server",
		"provider", providerName,
		"collections", len(deps.Catalog.Snapshot().Collections),
		"history", deps.History != nil)
	srv := &Server{
		router:    chi.NewRouter(),
		backend:   deps.Backend,
		catalog:   deps.Catalog,
		generator: deps.Generator,
		converter: deps.Converter,
		validator: deps.Validator,
		executor:  deps.Executor,
		history:   deps.History,
		provider:  deps.Provider,
		cfg:       configuration,
	}
	srv.routes()
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/api/health", s.handleHealth)

	s.router.Post("/api/generate-schema", s.handleGenerateSchema)
	s.router.Get("/api/schemas", s.handleSchemas)
	s.router.Get("/api/collections", s.handleCollections)
	s.router.Post("/api/convert", s.handleConvert)
	s.router.Post("/api/execute", s.handleExecute)

	s.router.Get("/api/logs", s.handleLogs)
	s.router.Get("/api/history", s.handleHistory)
	s.router.Handle("/debug/vars", expvar.Handler())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders the failure envelope, deriving the status from the
// error's taxonomy kind.
func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := statusForKind(kind)
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "kind", kind, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "kind", kind, "error", err)
	}
	payload := map[string]interface{}{
		"success": false,
		"error":   err.Error(),
		"kind":    string(kind),
	}
	if rule := errs.RuleOf(err); rule != "" {
		payload["rule"] = rule
	}
	writeJSON(w, status, payload)
}

// writeBadRequest rejects malformed or incomplete request bodies before they
// reach the pipeline.
func writeBadRequest(w http.ResponseWriter, format string, args ...interface{}) {
	writeError(w, errs.Newf(errs.KindQueryParse, format, args...))
}

func statusForKind(kind errs.Kind) int {
	switch kind {
	case errs.KindCollectionNotFound:
		return http.StatusNotFound
	case errs.KindQueryParse, errs.KindQueryValidation:
		return http.StatusBadRequest
	case errs.KindSourceUnavailable, errs.KindGenerationUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
