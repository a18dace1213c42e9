package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
	"github.com/pghie87/salem-invoice-system2/internal/fuelindex"
	"github.com/pghie87/salem-invoice-system2/internal/pricing"
	"github.com/pghie87/salem-invoice-system2/internal/quote"
)

// Server is the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, catalog *pricing.Catalog, builder *quote.Builder, fuel *fuelindex.Service, version string) *Server {
	handler := NewHandler(repo, cache, bus, catalog, builder, fuel, version)
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Open endpoints, no tenant required.
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Tenant-scoped API.
	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		r.Post("/quote", handler.Quote)
		r.Get("/quotes/{id}", handler.GetQuote)

		r.Post("/trips", handler.SubmitTrip)
		r.Get("/trips/{id}", handler.GetTrip)

		r.Get("/ratecards", handler.ListRateCards)
		r.Post("/ratecards", handler.CreateRateCard)
		r.Post("/ratecards/reload", handler.ReloadRateCards)
		r.Get("/ratecards/{id}", handler.GetRateCard)
		r.Delete("/ratecards/{id}", handler.DeleteRateCard)

		r.Put("/fuel-price", handler.SetFuelPrice)
		r.Get("/fuel-price", handler.GetFuelPrice)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start begins listening for HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting API server", "addr", addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	slog.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router, used for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the underlying API handler.
func (s *Server) Handler() *Handler {
	return s.handler
}
