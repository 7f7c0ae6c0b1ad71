// Package repository persists POIs, the user profile and relevance scores.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/okian/myplaces/internal/domain/model"
)

// Store provides read/write access to the score ledger.
//
// Write operations are best effort: failures are logged and counted but not
// returned, so a single bad write never aborts a scoring pass.
type Store interface {
	// UpsertScore sets the score of (poiID, userID), creating the row if needed.
	UpsertScore(ctx context.Context, poiID, userID uuid.UUID, score float64)
	// ScoresAbove returns the POIs whose score for userID is strictly above threshold.
	ScoresAbove(ctx context.Context, userID uuid.UUID, threshold float64) map[uuid.UUID]struct{}

	// RecordInteraction counts a click and optionally sets the favorite flag.
	RecordInteraction(ctx context.Context, poiID uuid.UUID, favorite *bool)
	// InteractionHistory returns the interaction state of a POI, or the
	// defaults for unknown POIs.
	InteractionHistory(ctx context.Context, poiID uuid.UUID) model.InteractionHistory

	// CurrentUser returns the current profile, if any.
	CurrentUser(ctx context.Context) (model.UserProfile, bool)
	// SetTheme stores the theme label on the current profile.
	SetTheme(ctx context.Context, label string)
	// CreateUser creates the profile. Only one profile may exist.
	CreateUser(ctx context.Context, name, email string) (model.UserProfile, error)

	// SyncPOIs creates or refreshes POI rows from the catalog.
	SyncPOIs(ctx context.Context, pois []model.POI) error

	// ScoreFor returns the stored score of (poiID, userID).
	ScoreFor(ctx context.Context, poiID, userID uuid.UUID) (float64, bool)
	// CountScores returns the number of score rows of userID.
	CountScores(ctx context.Context, userID uuid.UUID) int

	// Ping checks the database connection.
	Ping(ctx context.Context) error
}
