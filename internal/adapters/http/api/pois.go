package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/myplaces/internal/domain/model"
)

// POIDependencies defines the POI operations the handlers need.
type POIDependencies interface {
	RelevantPOIs(ctx context.Context) ([]model.POI, error)
	Lookup(externalKey string) (model.POI, bool)
	RecordClick(ctx context.Context, poi model.POI)
	MarkFavorite(ctx context.Context, poi model.POI)
}

// POIsHandler handles POI list and interaction requests.
type POIsHandler struct {
	deps POIDependencies
}

// NewPOIsHandler creates a new POIs handler.
func NewPOIsHandler(deps POIDependencies) *POIsHandler {
	return &POIsHandler{deps: deps}
}

// HandleList handles GET /pois requests with the current relevant set.
func (h *POIsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	pois, err := h.deps.RelevantPOIs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPOIList(pois))
}

// HandleClick handles POST /pois/{key}/click requests.
func (h *POIsHandler) HandleClick(w http.ResponseWriter, r *http.Request) {
	h.interact(w, r, h.deps.RecordClick)
}

// HandleFavorite handles POST /pois/{key}/favorite requests.
func (h *POIsHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	h.interact(w, r, h.deps.MarkFavorite)
}

func (h *POIsHandler) interact(w http.ResponseWriter, r *http.Request, record func(context.Context, model.POI)) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	poi, ok := h.deps.Lookup(key)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("poi %q: %w", key, ErrNotFound))
		return
	}
	record(r.Context(), poi)
	writeJSON(w, http.StatusOK, ackResponse{Status: "recorded"})
}
