// Package httpapi serves documentation search over HTTP: a small JSON API,
// the MCP streamable HTTP endpoint and Prometheus metrics.
package httpapi

import (
	"context"
	"net/http"

	"github.com/documenter-search/mcp-server/internal/config"
	"github.com/documenter-search/mcp-server/internal/metrics"
	"github.com/documenter-search/mcp-server/tools"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Searcher is the documentation backend of the JSON API.
type Searcher interface {
	Search(ctx context.Context, input tools.SearchDocumentationInput) (tools.SearchDocumentationOutput, error)
	Pages(ctx context.Context, version string) (tools.ListDocumentationPagesOutput, error)
}

// Server is the HTTP transport of the documentation search server.
type Server struct {
	router  chi.Router
	docs    Searcher
	mcp     http.Handler
	limiter *rate.Limiter
}

// NewServer builds the router. mcpHandler may be nil to serve the JSON API only.
func NewServer(docs Searcher, mcpHandler http.Handler, cfg config.HTTPConfig) *Server {
	s := &Server{
		docs:    docs,
		mcp:     mcpHandler,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), burst(cfg.RateLimit)),
	}
	s.setupRoutes()
	return s
}

func burst(rps float64) int {
	return max(1, int(2*rps))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(s.limiter))

		r.Get("/api/search", s.handleSearch)
		r.Get("/api/pages", s.handlePages)
		if s.mcp != nil {
			r.Handle("/mcp", s.mcp)
		}
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
