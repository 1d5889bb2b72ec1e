// Package web exposes the scored lead universe as a read-only JSON API with
// a Prometheus scrape endpoint.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/web/handlers"
	"github.com/sepa-leadgen/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *Config
	store      handlers.LeadStore
	registry   *prometheus.Registry
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a server over store. A nil registry disables /metrics.
func NewServer(config *Config, store handlers.LeadStore, registry *prometheus.Registry) *Server {
	server := &Server{
		config:   config,
		store:    store,
		registry: registry,
	}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:      server.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server
}

// Handler returns the routed handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	handlerConfig := &handlers.Config{}
	handlerConfig.Features.ExportEnabled = s.config.Features.ExportEnabled

	leadsHandler := &handlers.LeadsHandler{Store: s.store}
	statsHandler := &handlers.StatsHandler{Store: s.store}
	exportHandler := &handlers.ExportHandler{Store: s.store, Config: handlerConfig}

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/leads", leadsHandler.ListLeads).Methods(http.MethodGet)
	api.HandleFunc("/leads/geojson", leadsHandler.GetGeoJSON).Methods(http.MethodGet)
	api.HandleFunc("/leads/{id}", leadsHandler.GetLead).Methods(http.MethodGet)
	api.HandleFunc("/leads/{id}/signals", leadsHandler.GetSignals).Methods(http.MethodGet)
	api.HandleFunc("/stats", statsHandler.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/coverage", statsHandler.GetCoverage).Methods(http.MethodGet)

	if s.config.Features.ExportEnabled {
		api.HandleFunc("/export", exportHandler.ExportData).Methods(http.MethodPost, http.MethodOptions)
	}

	if s.registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging(zap.L()))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return eris.Wrap(err, "server error")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	zap.L().Info("server stopped")
	return nil
}
