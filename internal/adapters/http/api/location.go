package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/myplaces/internal/adapters/sensing"
	"github.com/okian/myplaces/internal/domain/model"
)

// locationRequest is the body of PUT /location. A missing speed means the
// device reported none.
type locationRequest struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	SpeedMps *float64 `json:"speed_mps"`
}

func (l locationRequest) validate() error {
	switch {
	case l.Lat == nil:
		return errors.New("missing lat")
	case l.Lon == nil:
		return errors.New("missing lon")
	case *l.Lat < -90 || *l.Lat > 90:
		return errors.New("lat must be within [-90, 90]")
	case *l.Lon < -180 || *l.Lon > 180:
		return errors.New("lon must be within [-180, 180]")
	}
	return nil
}

// LocationHandler handles device location updates.
type LocationHandler struct {
	locator LocationUpdater
	now     func() time.Time
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(locator LocationUpdater) *LocationHandler {
	return &LocationHandler{locator: locator, now: time.Now}
}

// HandleUpdate handles PUT /location requests.
func (h *LocationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	speed := -1.0
	if req.SpeedMps != nil {
		speed = *req.SpeedMps
	}
	h.locator.Update(sensing.Fix{
		Position: model.Point{Lon: *req.Lon, Lat: *req.Lat},
		SpeedMps: speed,
		At:       h.now(),
	})
	writeJSON(w, http.StatusOK, ackResponse{Status: "updated"})
}
