// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	service "github.com/okian/hotspot/internal/app"
	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/internal/domain/types"
)

const (
	defaultRadiusKm    = 2
	defaultMaxRadiusKm = 5
	defaultAlertsLimit = 20
	defaultMaxAlerts   = 100

	// defaultDispatchTimeout stays below the server's default write timeout.
	defaultDispatchTimeout = 8 * time.Second

	// maxBodyBytes bounds JSON request bodies.
	maxBodyBytes = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	QueryHotspots(ctx context.Context, center model.Point, radiusKm float64) ([]model.HotspotResult, error)
	ListHotspots(ctx context.Context) []model.ScoredPoint
	RegisterObserver(ctx context.Context, o model.Observer) (bool, error)
	DispatchAlerts(ctx context.Context, center model.Point, radiusKm float64) (service.DispatchResult, error)
	ReloadCatalog(ctx context.Context) (service.CatalogInfo, error)
	RecentAlerts(ctx context.Context, limit int) ([]model.AlertRecord, error)
}

// Option configures a Server.
type Option func(*Server)

// WithRadius sets the radius used when a request omits one and the largest
// radius accepted.
func WithRadius(defaultKm, maxKm float64) Option {
	return func(s *Server) {
		if maxKm > 0 && defaultKm > 0 && defaultKm <= maxKm {
			s.limits.defaultRadiusKm = defaultKm
			s.limits.maxRadiusKm = maxKm
		}
	}
}

// WithMaxAlertsLimit caps GET /alerts?limit.
func WithMaxAlertsLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.limits.maxAlerts = n
		}
	}
}

// WithDispatchTimeout bounds how long POST /alerts/dispatch waits for
// deliveries before answering with the counts reached so far.
func WithDispatchTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.limits.dispatchTimeout = d
		}
	}
}

// WithSecretKey protects privileged routes with bearer tokens signed by key.
func WithSecretKey(key string) Option {
	return func(s *Server) {
		s.secretKey = key
	}
}

// WithStream mounts h at /alerts/stream.
func WithStream(h http.Handler) Option {
	return func(s *Server) {
		s.stream = h
	}
}

type limits struct {
	defaultRadiusKm float64
	maxRadiusKm     float64
	maxAlerts       int
	dispatchTimeout time.Duration
}

// Server wires HTTP routes for the business API.
type Server struct {
	limits    limits
	secretKey string
	stream    http.Handler

	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	hotspotsHandler *HotspotsHandler
	dispatchHandler *DispatchHandler
	observerHandler *ObserverHandler
	alertsHandler   *AlertsHandler
	catalogHandler  *CatalogHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		limits: limits{
			defaultRadiusKm: defaultRadiusKm,
			maxRadiusKm:     defaultMaxRadiusKm,
			maxAlerts:       defaultMaxAlerts,
			dispatchTimeout: defaultDispatchTimeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.hotspotsHandler = NewHotspotsHandler(deps, s.limits)
	s.dispatchHandler = NewDispatchHandler(deps, s.limits)
	s.observerHandler = NewObserverHandler(deps)
	s.alertsHandler = NewAlertsHandler(deps, s.limits.maxAlerts)
	s.catalogHandler = NewCatalogHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleHealth)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/hotspots", MetricsMiddleware(s.hotspotsHandler.HandleList, "hotspots"))
	mux.HandleFunc("/hotspots/query", MetricsMiddleware(s.hotspotsHandler.HandleQuery, "hotspots_query"))
	mux.HandleFunc("/observers", MetricsMiddleware(s.observerHandler.HandleRegister, "observers"))
	mux.HandleFunc("/alerts", MetricsMiddleware(s.alertsHandler.HandleList, "alerts"))
	mux.HandleFunc("/alerts/dispatch", MetricsMiddleware(AuthMiddleware(s.secretKey, s.dispatchHandler.HandleDispatch), "alerts_dispatch"))
	mux.HandleFunc("/catalog/reload", MetricsMiddleware(AuthMiddleware(s.secretKey, s.catalogHandler.HandleReload), "catalog_reload"))
	if s.stream != nil {
		mux.Handle("/alerts/stream", s.stream)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}
