package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/config"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/engine"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/log"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/metrics"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/storage"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/types"
)

const (
	defaultDeleteWait          = 600 * time.Second
	defaultDeleteRetryInterval = 2 * time.Second
	shutdownTimeout            = 10 * time.Second
)

// Orchestrator drives lifecycle workflows in the background. Satisfied by
// the provisioner; tests substitute fakes.
type Orchestrator interface {
	Provision(storeID string) error
	Delete(storeID string) error
	OperationStatus(storeID string) (types.OperationKind, bool)
}

// Server is the REST surface over the registry and the provisioner. Every
// mutating endpoint validates input, enforces the state-machine guard,
// mutates the registry, schedules the background operation, and returns
// immediately.
type Server struct {
	cfg          *config.Config
	store        storage.Store
	engines      *engine.Registry
	orchestrator Orchestrator

	router              *chi.Mux
	httpServer          *http.Server
	logger              zerolog.Logger
	deleteWait          time.Duration
	deleteRetryInterval time.Duration
}

// NewServer creates the API server and mounts all routes
func NewServer(cfg *config.Config, store storage.Store, engines *engine.Registry, orchestrator Orchestrator) *Server {
	s := &Server{
		cfg:                 cfg,
		store:               store,
		engines:             engines,
		orchestrator:        orchestrator,
		router:              chi.NewRouter(),
		logger:              log.WithComponent("api"),
		deleteWait:          defaultDeleteWait,
		deleteRetryInterval: defaultDeleteRetryInterval,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	generalLimiter := newIPRateLimiter(s.cfg.RateLimitMaxRequests, s.cfg.RateLimitWindow())
	createLimiter := newIPRateLimiter(s.cfg.RateLimitMaxCreates, s.cfg.RateLimitWindow())

	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(requestMetrics)
	s.router.Use(recoverer(s.logger, s.cfg.Production()))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Prometheus scrape endpoint, outside the rate-limited API surface
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(rateLimitMiddleware(generalLimiter))

		r.Get("/health", s.handleHealth)
		r.Get("/audit", s.handleAudit)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", s.handleListStores)
			r.With(rateLimitMiddleware(createLimiter)).Post("/", s.handleCreateStore)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetStore)
				r.Delete("/", s.handleDeleteStore)
				r.Post("/retry", s.handleRetryStore)
				r.Get("/audit", s.handleStoreAudit)
				r.Get("/operation", s.handleStoreOperation)
			})
		})
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start binds the listener and serves until Shutdown
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Str("environment", s.cfg.Environment).
		Msg("API server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests with a bounded deadline
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
