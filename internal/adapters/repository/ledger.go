package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/okian/myplaces/internal/domain/model"
	"github.com/okian/myplaces/pkg/logger"
	"github.com/okian/myplaces/pkg/metrics"
)

// HistoryFallbackAge is how far back an unknown last interaction is placed.
const HistoryFallbackAge = 600 * 24 * time.Hour

const defaultBatchSize = 500

// Ledger is the gorm-backed Store.
type Ledger struct {
	db        *gorm.DB
	now       func() time.Time
	gormLog   gormLogger.Interface
	batchSize int
}

var _ Store = (*Ledger)(nil)

// Open opens (or creates) the sqlite database at dsn and migrates the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		now: time.Now,
		gormLog: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(l)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: l.gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// One connection serialises writers and keeps shared in-memory
	// databases alive for the ledger lifetime.
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(&POIRecord{}, &UserProfileRecord{}, &RelevanceScore{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}

	l.db = db
	return l, nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection.
func (l *Ledger) Ping(ctx context.Context) error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// UpsertScore writes the score with a single INSERT .. ON CONFLICT DO UPDATE.
func (l *Ledger) UpsertScore(ctx context.Context, poiID, userID uuid.UUID, score float64) {
	row := RelevanceScore{POIID: poiID, UserID: userID, Score: score, UpdatedAt: l.now()}
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "poi_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		l.fail(ctx, "upsert_score", err, logger.String("poi_id", poiID.String()))
		return
	}
	metrics.RecordLedgerWrite("upsert_score")
}

// ScoresAbove returns the POIs whose score is strictly above threshold. A
// failed query yields an empty set.
func (l *Ledger) ScoresAbove(ctx context.Context, userID uuid.UUID, threshold float64) map[uuid.UUID]struct{} {
	start := time.Now()
	defer func() { metrics.RecordLedgerQueryLatency(time.Since(start)) }()

	var ids []uuid.UUID
	err := l.db.WithContext(ctx).Model(&RelevanceScore{}).
		Where("user_id = ? AND score > ?", userID, threshold).
		Pluck("poi_id", &ids).Error
	if err != nil {
		l.fail(ctx, "scores_above", err)
		return map[uuid.UUID]struct{}{}
	}

	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// ScoreFor returns the stored score of (poiID, userID).
func (l *Ledger) ScoreFor(ctx context.Context, poiID, userID uuid.UUID) (float64, bool) {
	var row RelevanceScore
	err := l.db.WithContext(ctx).Where("poi_id = ? AND user_id = ?", poiID, userID).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.fail(ctx, "score_for", err)
		}
		return 0, false
	}
	return row.Score, true
}

// CountScores returns the number of score rows of userID.
func (l *Ledger) CountScores(ctx context.Context, userID uuid.UUID) int {
	var n int64
	if err := l.db.WithContext(ctx).Model(&RelevanceScore{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		l.fail(ctx, "count_scores", err)
		return 0
	}
	return int(n)
}

// RecordInteraction increments the click count and stamps the interaction
// time in one UPDATE. favorite is only written when non-nil.
func (l *Ledger) RecordInteraction(ctx context.Context, poiID uuid.UUID, favorite *bool) {
	now := l.now()
	updates := map[string]any{
		"click_count":        gorm.Expr("click_count + ?", 1),
		"last_interacted_at": now,
		"updated_at":         now,
	}
	if favorite != nil {
		updates["favorite"] = *favorite
	}

	res := l.db.WithContext(ctx).Model(&POIRecord{}).Where("id = ?", poiID).UpdateColumns(updates)
	if res.Error != nil {
		l.fail(ctx, "record_interaction", res.Error, logger.String("poi_id", poiID.String()))
		return
	}
	if res.RowsAffected == 0 {
		logger.Get().Warn(ctx, "interaction for unknown POI dropped", logger.String("poi_id", poiID.String()))
		metrics.RecordLedgerError("record_interaction")
		return
	}
	metrics.RecordLedgerWrite("record_interaction")
}

// InteractionHistory returns the interaction state of poiID. Unknown POIs
// and POIs never interacted with report a last interaction 600 days ago.
func (l *Ledger) InteractionHistory(ctx context.Context, poiID uuid.UUID) model.InteractionHistory {
	fallback := l.now().Add(-HistoryFallbackAge)

	var rec POIRecord
	err := l.db.WithContext(ctx).
		Select("favorite", "click_count", "last_interacted_at").
		Where("id = ?", poiID).First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.fail(ctx, "interaction_history", err)
		}
		return model.InteractionHistory{LastInteractedAt: fallback}
	}

	h := model.InteractionHistory{Favorite: rec.Favorite, ClickCount: rec.ClickCount, LastInteractedAt: fallback}
	if rec.LastInteractedAt != nil {
		h.LastInteractedAt = *rec.LastInteractedAt
	}
	return h
}

// CurrentUser returns the oldest profile.
func (l *Ledger) CurrentUser(ctx context.Context) (model.UserProfile, bool) {
	var rec UserProfileRecord
	err := l.db.WithContext(ctx).Order("created_at ASC").First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.fail(ctx, "current_user", err)
		}
		return model.UserProfile{}, false
	}
	return rec.toModel(), true
}

// SetTheme stores label on the current profile. Without a profile the
// theme is dropped.
func (l *Ledger) SetTheme(ctx context.Context, label string) {
	user, ok := l.CurrentUser(ctx)
	if !ok {
		logger.Get().Warn(ctx, "no current user, theme dropped", logger.String("theme", label))
		return
	}
	err := l.db.WithContext(ctx).Model(&UserProfileRecord{}).
		Where("id = ?", user.UserID).
		Update("theme", label).Error
	if err != nil {
		l.fail(ctx, "set_theme", err)
		return
	}
	metrics.RecordLedgerWrite("set_theme")
}

// CreateUser creates the single local profile.
func (l *Ledger) CreateUser(ctx context.Context, name, email string) (model.UserProfile, error) {
	if name == "" || email == "" {
		return model.UserProfile{}, fmt.Errorf("%w: name and email are required", ErrInvalidUser)
	}

	rec := UserProfileRecord{ID: uuid.New(), Name: name, Email: email}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&UserProfileRecord{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrProfileExists
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		if errors.Is(err, ErrProfileExists) {
			return model.UserProfile{}, err
		}
		return model.UserProfile{}, fmt.Errorf("failed to create user: %w", err)
	}
	metrics.RecordLedgerWrite("create_user")
	return rec.toModel(), nil
}

// SyncPOIs upserts the descriptive columns of every POI. Interaction
// columns of existing rows are left untouched.
func (l *Ledger) SyncPOIs(ctx context.Context, pois []model.POI) error {
	if len(pois) == 0 {
		return nil
	}

	rows := make([]POIRecord, 0, len(pois))
	for _, p := range pois {
		rows = append(rows, poiRecordFrom(p))
	}

	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_key",
			"category",
			"name",
			"address",
			"raw_tags",
			"lon",
			"lat",
			"updated_at",
		}),
	}).CreateInBatches(&rows, l.batchSize).Error
	if err != nil {
		metrics.RecordLedgerError("sync_pois")
		return fmt.Errorf("failed to sync %d POIs: %w", len(pois), err)
	}
	metrics.RecordLedgerWrite("sync_pois")
	return nil
}

func (l *Ledger) fail(ctx context.Context, op string, err error, fields ...logger.Field) {
	metrics.RecordLedgerError(op)
	fields = append(fields, logger.String("op", op), logger.Error(err))
	logger.Get().Error(ctx, "ledger operation failed", fields...)
}
