package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/sighting-analytics-service/internal/aggregate"
	"github.com/couchcryptid/sighting-analytics-service/internal/analytics"
	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analytics answers the dashboard queries. It is satisfied by *analytics.Engine.
type Analytics interface {
	sharedobs.ReadinessChecker
	Years() []int
	Count(year int) int
	MapPoints(year int) []analytics.MapPoint
	Top(mode aggregate.Mode, year, n int) ([]aggregate.Entry, error)
	TimeSeries(upTo int) []domain.YearCount
	Clusters(year int) []analytics.ClusterPoint
}

// Server exposes health, readiness, metrics, and the analytics query API.
type Server struct {
	httpServer *http.Server
	api        Analytics
	topN       int
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /api/v1 query routes. topN is the ranking size used when a request does not
// pass n.
func NewServer(addr string, api Analytics, topN int, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	if topN <= 0 {
		topN = aggregate.DefaultN
	}
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:    api,
		topN:   topN,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(api))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/years", s.handleYears)
	mux.HandleFunc("GET /api/v1/map", s.handleMap)
	mux.HandleFunc("GET /api/v1/top", s.handleTop)
	mux.HandleFunc("GET /api/v1/timeseries", s.handleTimeSeries)
	mux.HandleFunc("GET /api/v1/clusters", s.handleClusters)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
