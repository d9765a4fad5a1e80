// Package server provides the HTTP handlers and routing for the gateway.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/crashlens/tracker-bff/pkg/cache"
	"github.com/crashlens/tracker-bff/pkg/endpoints"
	"github.com/crashlens/tracker-bff/pkg/upstream"
)

// IssueEntity describes the cache footprint of issues for invalidation:
// the point-read key plus every list-level read that may contain the issue.
var IssueEntity = cache.Entity{
	DetailCategory: "issue",
	DetailName:     "detail",
	IDParam:        "issue_id",
	ListPattern:    "issues:list*",
	AllPattern:     "issue*",
}

// Upstream is the slice of the upstream client the server needs.
// *upstream.Client satisfies this.
type Upstream interface {
	Get(ctx context.Context, category, name string, params map[string]string, query url.Values) ([]byte, error)
	Do(ctx context.Context, category, name string, params map[string]string, query url.Values, body []byte) ([]byte, error)
}

// Config contains server configuration values.
type Config struct {
	Port        string
	Registry    *endpoints.Registry
	Interceptor *cache.Interceptor
	Upstream    Upstream
	Logger      zerolog.Logger
}

// Server contains the configured router and its collaborators.
type Server struct {
	cfg         Config
	router      *chi.Mux
	registry    *endpoints.Registry
	interceptor *cache.Interceptor
	upstream    Upstream
	logger      zerolog.Logger
}

// New constructs a Server with middleware and routes configured.
func New(cfg Config) *Server {
	s := &Server{
		cfg:         cfg,
		router:      chi.NewRouter(),
		registry:    cfg.Registry,
		interceptor: cfg.Interceptor,
		upstream:    cfg.Upstream,
		logger:      cfg.Logger.With().Str("component", "server").Logger(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/endpoints", s.handleListEndpoints)

		r.Get("/projects", s.read("projects", "list"))
		r.Get("/projects/{organization_slug}/{project_slug}/issues", s.read("issues", "list", "organization_slug", "project_slug"))
		r.Get("/projects/{organization_slug}/{project_slug}/issues/search", s.read("issues", "search", "organization_slug", "project_slug"))

		r.Get("/issues/{issue_id}", s.read("issue", "detail", "issue_id"))
		r.Get("/issues/{issue_id}/events", s.read("issue", "events", "issue_id"))
		r.Put("/issues/{issue_id}", s.handleIssueUpdate)

		r.Get("/alert-rules/{organization_slug}/{project_slug}", s.read("alerts", "rules", "organization_slug", "project_slug"))
	})

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleListEndpoints exposes the registry contents for discovery.
func (s *Server) handleListEndpoints(w http.ResponseWriter, _ *http.Request) {
	type endpointInfo struct {
		Method      string   `json:"method"`
		Params      []string `json:"params"`
		CacheTTL    string   `json:"cache_ttl,omitempty"`
		Description string   `json:"description,omitempty"`
	}

	out := make(map[string]map[string]endpointInfo)
	for _, category := range s.registry.Categories() {
		out[category] = make(map[string]endpointInfo)
	}
	for category, names := range s.registry.Endpoints() {
		for _, name := range names {
			ep, ok := s.registry.GetEndpoint(category, name)
			if !ok {
				continue
			}
			info := endpointInfo{
				Method:      ep.Method,
				Params:      ep.Params(),
				Description: ep.Description,
			}
			if ep.Cacheable {
				info.CacheTTL = ep.CacheTTL.String()
			}
			out[category][name] = info
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"version":    s.registry.Version(),
		"categories": out,
	})
}

// read builds a handler that serves a registry endpoint through the cache
// interception layer. URL parameters named in paramNames are taken from the
// route; remaining query parameters are forwarded upstream and join the
// cache key, so requests differing only in their query string get distinct
// entries. A `refresh=true` query flag bypasses the cache entirely.
func (s *Server) read(category, name string, paramNames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := make(map[string]string, len(paramNames))
		for _, p := range paramNames {
			params[p] = chi.URLParam(r, p)
		}

		query := r.URL.Query()
		bypass := query.Get("refresh") == "true"
		query.Del("refresh")

		result, err := s.interceptor.Do(r.Context(), category, name, mergeQueryParams(params, query), bypass, func(ctx context.Context) ([]byte, error) {
			return s.upstream.Get(ctx, category, name, params, query)
		})
		if err != nil {
			s.writeError(w, category, name, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", string(result.Status))
		w.Write(result.Data)
	}
}

// mergeQueryParams folds query values into the route parameters to form the
// effective cache-key parameter set. Repeated query names are joined so
// `?a=1&a=2` and `?a=1` key differently.
func mergeQueryParams(params map[string]string, query url.Values) map[string]string {
	if len(query) == 0 {
		return params
	}
	merged := make(map[string]string, len(params)+len(query))
	for k, v := range params {
		merged[k] = v
	}
	for k, vals := range query {
		merged[k] = strings.Join(vals, ",")
	}
	return merged
}

// handleIssueUpdate forwards the mutation upstream and invalidates both the
// point-read cache entry for the issue and every list that may contain it.
func (s *Server) handleIssueUpdate(w http.ResponseWriter, r *http.Request) {
	issueID := chi.URLParam(r, "issue_id")
	params := map[string]string{"issue_id": issueID}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read request body", http.StatusBadRequest)
		return
	}

	data, err := s.upstream.Do(r.Context(), "issue", "update", params, nil, body)
	if err != nil {
		s.writeError(w, "issue", "update", err)
		return
	}

	s.interceptor.InvalidateEntity(r.Context(), IssueEntity, issueID)

	s.logger.Info().
		Str("issue_id", issueID).
		Msg("Issue updated, cache invalidated")

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// writeError maps gateway errors to HTTP responses. Upstream HTTP failures
// keep their original status; resolution failures are the caller's fault.
func (s *Server) writeError(w http.ResponseWriter, category, name string, err error) {
	var (
		unknownErr *endpoints.UnknownEndpointError
		missingErr *endpoints.MissingParameterError
		upErr      *upstream.Error
	)

	status := http.StatusBadGateway
	switch {
	case errors.As(err, &unknownErr):
		status = http.StatusNotFound
	case errors.As(err, &missingErr):
		status = http.StatusBadRequest
	case errors.Is(err, upstream.ErrRateLimitBlocked):
		status = http.StatusTooManyRequests
	case errors.As(err, &upErr) && upErr.StatusCode != 0:
		status = upErr.StatusCode
	}

	s.logger.Warn().
		Err(err).
		Str("category", category).
		Str("name", name).
		Int("status", status).
		Msg("Request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
