// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Point is a WGS84 position.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// POI is a point of interest from the external catalog.
type POI struct {
	ExternalKey string    // catalog key, e.g. an OSM id
	ID          uuid.UUID // derived from ExternalKey
	Category    string    // OSM feature class, e.g. "cafe"
	Name        string
	Address     string
	RawTags     string // hstore-style tag blob, carries opening_hours
	Geometry    Point
}

// InteractionHistory is what the ledger knows about a user's past
// interactions with one POI.
type InteractionHistory struct {
	Favorite         bool
	ClickCount       int
	LastInteractedAt time.Time
}

// UserProfile is the single local user.
type UserProfile struct {
	UserID uuid.UUID
	Name   string
	Email  string
	Theme  *string // nil until the first theme pass
}
