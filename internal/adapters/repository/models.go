package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/myplaces/internal/domain/identity"
	"github.com/okian/myplaces/internal/domain/model"
)

// POIRecord is a catalog POI plus its interaction state.
type POIRecord struct {
	ID               uuid.UUID  `gorm:"column:id;type:text;primaryKey"`
	ExternalKey      string     `gorm:"column:external_key;not null;uniqueIndex"`
	Category         string     `gorm:"column:category;not null;default:''"`
	Name             string     `gorm:"column:name;not null;default:''"`
	Address          string     `gorm:"column:address;not null;default:''"`
	RawTags          string     `gorm:"column:raw_tags;not null;default:''"`
	Lon              float64    `gorm:"column:lon;not null"`
	Lat              float64    `gorm:"column:lat;not null"`
	Favorite         bool       `gorm:"column:favorite;not null;default:false"`
	ClickCount       int        `gorm:"column:click_count;not null;default:0"`
	LastInteractedAt *time.Time `gorm:"column:last_interacted_at"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (POIRecord) TableName() string { return "pois" }

// UserProfileRecord is the single local user.
type UserProfileRecord struct {
	ID        uuid.UUID `gorm:"column:id;type:text;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;not null"`
	Theme     *string   `gorm:"column:theme"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (UserProfileRecord) TableName() string { return "user_profiles" }

// RelevanceScore is the latest score of one POI for one user. The composite
// unique index is the conflict target of every upsert.
type RelevanceScore struct {
	ID        uint      `gorm:"primaryKey"`
	POIID     uuid.UUID `gorm:"column:poi_id;type:text;not null;index:idx_relevance_poi_user,unique,priority:1"`
	UserID    uuid.UUID `gorm:"column:user_id;type:text;not null;index:idx_relevance_poi_user,unique,priority:2;index:idx_relevance_user_score,priority:1"`
	Score     float64   `gorm:"column:score;not null;index:idx_relevance_user_score,priority:2"`
	UpdatedAt time.Time
}

func (RelevanceScore) TableName() string { return "relevance_scores" }

func (r UserProfileRecord) toModel() model.UserProfile {
	return model.UserProfile{UserID: r.ID, Name: r.Name, Email: r.Email, Theme: r.Theme}
}

// poiRecordFrom keys the row by the derived id, whatever p.ID holds.
func poiRecordFrom(p model.POI) POIRecord {
	key := identity.NormalizeKey(p.ExternalKey)
	return POIRecord{
		ID:          identity.DeriveID(key),
		ExternalKey: key,
		Category:    p.Category,
		Name:        p.Name,
		Address:     p.Address,
		RawTags:     p.RawTags,
		Lon:         p.Geometry.Lon,
		Lat:         p.Geometry.Lat,
	}
}
