// Package api provides the HTTP API server and handlers for brickcomplete.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brickcomplete/brickcomplete-server/internal/auth"
	"github.com/brickcomplete/brickcomplete-server/internal/metrics"
	"github.com/brickcomplete/brickcomplete-server/internal/validation"
)

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins []string

	// RequestsPerMinute limits API requests per client IP. Zero disables limiting.
	RequestsPerMinute int
	Burst             int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services  *Services
	health    HealthChecks
	tokens    *auth.TokenService
	validator *validation.Validator
	limiter   *RateLimiter
	router    *chi.Mux
	api       huma.API
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, health HealthChecks, tokens *auth.TokenService, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		services:  services,
		health:    health,
		tokens:    tokens,
		validator: validation.New(),
		router:    chi.NewRouter(),
		logger:    logger,
	}
	if opts.RequestsPerMinute > 0 {
		s.limiter = NewRateLimiter(opts.RequestsPerMinute, time.Minute, max(opts.Burst, 1))
	}

	s.setupMiddleware(opts)

	s.router.Handle("/metrics", promhttp.Handler())

	s.api = humachi.New(s.router, NewHumaConfig())
	RegisterErrorHandler()
	s.registerRoutes()

	return s
}

// NewHumaConfig returns the OpenAPI configuration of the API.
func NewHumaConfig() huma.Config {
	config := huma.DefaultConfig("brickcomplete API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	return config
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(requestIDMiddleware)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	s.router.Use(metrics.Middleware)
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

// registerRoutes registers every huma operation.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerSetRoutes()
	s.registerCatalogRoutes()
	s.registerCollectionRoutes()
	s.registerInventoryRoutes()
}
