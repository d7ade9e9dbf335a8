// Package rest wires the HTTP transport for the retrieval engine
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"recall-backend/interfaces/http/rest/handlers"
	"recall-backend/interfaces/http/rest/middleware"
	"recall-backend/pkg/auth"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig carries the transport-level toggles
type RouterConfig struct {
	EnableCORS     bool
	EnableMetrics  bool
	AllowedOrigins []string
}

// Router creates and configures the HTTP router
type Router struct {
	search        *handlers.SearchHandler
	graph         *handlers.GraphHandler
	memories      *handlers.MemoryHandler
	validator     *auth.JWTValidator
	ipLimiter     *auth.RateLimiter
	tenantLimiter *auth.RateLimiter
	store         Pinger
	config        RouterConfig
	logger        *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	search *handlers.SearchHandler,
	graph *handlers.GraphHandler,
	memories *handlers.MemoryHandler,
	validator *auth.JWTValidator,
	store Pinger,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		search:        search,
		graph:         graph,
		memories:      memories,
		validator:     validator,
		ipLimiter:     auth.NewRateLimiter(100, time.Minute/100),
		tenantLimiter: auth.NewRateLimiter(200, time.Minute/200),
		store:         store,
		config:        config,
		logger:        logger,
	}
}

// Close stops the rate limiters' background eviction loops
func (rt *Router) Close() {
	rt.ipLimiter.Stop()
	rt.tenantLimiter.Stop()
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.config.EnableMetrics {
		router.Handle("/metrics", promhttp.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.ipLimiter, rt.tenantLimiter, rt.logger))

		r.Post("/search", rt.search.Search)
		r.Post("/memories", rt.memories.Ingest)

		r.Route("/graph", func(r chi.Router) {
			r.Post("/nodes", rt.graph.UpsertNode)
			r.Post("/edges", rt.graph.UpsertEdge)
			r.Get("/nodes/{name}/neighbors", rt.graph.Neighbors)
			r.Get("/path", rt.graph.Path)
		})
	})

	return router
}

// healthCheck handles liveness requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready only when the store answers a ping
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.store != nil {
		if err := rt.store.Ping(req.Context()); err != nil {
			rt.logger.Warn("readiness ping failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not ready"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
