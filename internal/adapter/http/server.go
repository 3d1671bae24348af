package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/sensor-map-service/internal/observability"
	"github.com/couchcryptid/sensor-map-service/internal/pipeline"
	"github.com/couchcryptid/sensor-map-service/internal/registry"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingester is the part of the pipeline the API drives.
type Ingester interface {
	CheckReadiness(ctx context.Context) error
	Ingest(ctx context.Context) (pipeline.Report, error)
	LastReport() (pipeline.Report, bool)
}

// Server exposes the marker API, the websocket stream, and the health,
// readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	registry   *registry.Registry
	ingester   Ingester
	hub        *hub
	logger     *slog.Logger
}

// NewServer creates an HTTP server wired to the registry and ingester.
func NewServer(addr string, reg *registry.Registry, ingester Ingester, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		registry: reg,
		ingester: ingester,
		hub:      newHub(reg, metrics, logger),
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ingester))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/markers", s.handleMarkers)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/filter", s.handleFilter)
	mux.HandleFunc("POST /api/show-all", s.handleShowAll)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /ws", s.hub.handleWebSocket)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown closes websocket clients and drains HTTP connections within the
// given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
