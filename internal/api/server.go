package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/intake"
	"github.com/opensource-finance/kestrel/internal/rules"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, intakeSvc *intake.Service, evaluator *rules.Evaluator, ruleCache RuleCacheInvalidator, cache domain.Cache, bus domain.EventBus, version string) *Server {
	handler := NewHandler(repo, intakeSvc, evaluator, ruleCache, cache, bus, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health and observability endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Handle("/metrics", promhttp.Handler())

	// API routes
	router.Route("/api", func(r chi.Router) {
		// Transactions
		r.Post("/transactions", handler.CreateTransaction)
		r.Get("/transactions/{id}", handler.GetTransaction)
		r.Post("/transactions/{id}/reanalyze", handler.ReanalyzeTransaction)
		r.Put("/transactions/{id}/status", handler.OverrideTransactionStatus)
		r.Get("/transactions/status/{status}", handler.ListTransactionsByStatus)
		r.Get("/transactions/user/{userId}/recent", handler.ListRecentTransactionsByUser)

		// Fraud rules
		r.Get("/fraud-rules", handler.ListRules)
		r.Get("/fraud-rules/active", handler.ListActiveRules)
		r.Get("/fraud-rules/{id}", handler.GetRule)
		r.Post("/fraud-rules", handler.CreateRule)
		r.Put("/fraud-rules/{id}", handler.UpdateRule)
		r.Put("/fraud-rules/{id}/toggle", handler.ToggleRule)
		r.Delete("/fraud-rules/{id}", handler.DeleteRule)

		// Users
		r.Post("/users", handler.CreateUser)
		r.Get("/users", handler.ListUsers)
		r.Get("/users/{id}", handler.GetUser)
		r.Delete("/users/{id}", handler.DeleteUser)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
