package api

import (
	"context"
	"net/http"

	"github.com/okian/myplaces/internal/domain/model"
)

// SessionDependencies runs a session on demand.
type SessionDependencies interface {
	RunSession(ctx context.Context) ([]model.POI, error)
}

// SessionHandler handles session requests.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleRun handles POST /session requests and returns the new relevant set.
func (h *SessionHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	pois, err := h.deps.RunSession(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPOIList(pois))
}
