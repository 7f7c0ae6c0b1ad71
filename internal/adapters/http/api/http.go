// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/myplaces/internal/adapters/sensing"
	service "github.com/okian/myplaces/internal/app"
	"github.com/okian/myplaces/internal/domain/model"
	"github.com/okian/myplaces/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service.
type Dependencies interface {
	POIDependencies
	SessionDependencies
	HealthDependencies
	StatsProvider
}

// LocationUpdater receives device fixes.
type LocationUpdater interface {
	Update(fix sensing.Fix)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	poisHandler     *POIsHandler
	sessionHandler  *SessionHandler
	locationHandler *LocationHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, locator LocationUpdater) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(deps),
		poisHandler:     NewPOIsHandler(deps),
		sessionHandler:  NewSessionHandler(deps),
		locationHandler: NewLocationHandler(locator),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/pois", MetricsMiddleware(s.poisHandler.HandleList, "pois"))
	mux.HandleFunc("/pois/{key}/click", MetricsMiddleware(s.poisHandler.HandleClick, "click"))
	mux.HandleFunc("/pois/{key}/favorite", MetricsMiddleware(s.poisHandler.HandleFavorite, "favorite"))
	mux.HandleFunc("/session", MetricsMiddleware(s.sessionHandler.HandleRun, "session"))
	mux.HandleFunc("/location", MetricsMiddleware(s.locationHandler.HandleUpdate, "location"))
}

// poiResponse is the wire shape of a POI.
type poiResponse struct {
	Key      string  `json:"key"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Address  string  `json:"address,omitempty"`
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
}

type poiListResponse struct {
	Count int           `json:"count"`
	POIs  []poiResponse `json:"pois"`
}

func toPOIList(pois []model.POI) poiListResponse {
	out := poiListResponse{Count: len(pois), POIs: make([]poiResponse, 0, len(pois))}
	for _, p := range pois {
		out.POIs = append(out.POIs, poiResponse{
			Key:      p.ExternalKey,
			ID:       p.ID.String(),
			Name:     p.Name,
			Category: p.Category,
			Address:  p.Address,
			Lon:      p.Geometry.Lon,
			Lat:      p.Geometry.Lat,
		})
	}
	return out
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
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
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service errors to a status code.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrNoCurrentUser) {
		writeError(w, http.StatusConflict, "no_user", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err)
}
