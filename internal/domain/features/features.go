// Package features builds the relevance model input for one POI.
//
// Everything here is a pure transformation of values the caller already
// resolved: the sensing snapshot, the ledger history and the stored theme.
package features

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/okian/myplaces/internal/domain/model"
	"github.com/okian/myplaces/internal/domain/openinghours"
)

// Feature constants.
const (
	// UnknownDistanceKm is used when the device position is unknown. It is
	// beyond any distance in the model training data.
	UnknownDistanceKm = 360.0

	earthRadiusKm = 6371.0
	day           = 24 * time.Hour
)

// Context is the per-pass state shared by every POI of a relevance pass.
type Context struct {
	Now             time.Time
	Position        *model.Point // nil when the device position is unknown
	SpeedKmh        float64
	WeatherCategory float64
	Theme           *string // stored user theme, nil before the first theme pass
}

// BuildVector derives the feature vector of poi.
func BuildVector(poi model.POI, c Context, hist model.InteractionHistory) model.FeatureVector {
	distance := UnknownDistanceKm
	if c.Position != nil {
		distance = DistanceKm(*c.Position, poi.Geometry)
	}

	return model.FeatureVector{
		DistanceKm:      distance,
		SpeedKmh:        c.SpeedKmh,
		WeatherCategory: c.WeatherCategory,
		IsOpen:          boolToFloat(openinghours.IsOpen(poi.RawTags, c.Now)),
		IsFavorite:      boolToFloat(hist.Favorite),
		ClickCount:      float64(hist.ClickCount),
		DaysSince:       DaysSince(c.Now, hist.LastInteractedAt),
		ThemeCode:       ThemeCode(c.Theme),
		CategoryCode:    CategoryCode(poi.Category),
	}
}

// DistanceKm is the great-circle distance between two WGS84 points.
func DistanceKm(a, b model.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DaysSince counts whole 24h periods between last and now. A last
// interaction in the future counts as today.
func DaysSince(now, last time.Time) float64 {
	d := now.Sub(last)
	if d < 0 {
		return 0
	}
	return float64(d / day)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// HistoryReader is the slice of the ledger the computer needs.
type HistoryReader interface {
	InteractionHistory(ctx context.Context, poiID uuid.UUID) model.InteractionHistory
}

// Computer binds BuildVector to the ledger history of each POI.
type Computer struct {
	history HistoryReader
}

// NewComputer creates a Computer reading history from h.
func NewComputer(h HistoryReader) *Computer {
	return &Computer{history: h}
}

// Vector reads the ledger history of poi and builds its vector.
func (c *Computer) Vector(ctx context.Context, poi model.POI, fc Context) model.FeatureVector {
	return BuildVector(poi, fc, c.history.InteractionHistory(ctx, poi.ID))
}
