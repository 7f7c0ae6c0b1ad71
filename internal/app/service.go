// Package service orchestrates the relevance pipeline: theme pass,
// relevance pass, threshold filtering and interaction recording. It also
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/myplaces/internal/adapters/catalog"
	"github.com/okian/myplaces/internal/adapters/mq/queue"
	"github.com/okian/myplaces/internal/adapters/mq/worker"
	"github.com/okian/myplaces/internal/adapters/repository"
	"github.com/okian/myplaces/internal/adapters/sensing"
	"github.com/okian/myplaces/internal/domain/features"
	"github.com/okian/myplaces/internal/domain/identity"
	"github.com/okian/myplaces/internal/domain/model"
	"github.com/okian/myplaces/internal/domain/openinghours"
	"github.com/okian/myplaces/internal/domain/scoring"
	"github.com/okian/myplaces/pkg/logger"
	"github.com/okian/myplaces/pkg/metrics"
)

// Default service configuration constants.
const (
	DefaultThreshold = 0.5
	defaultInterval  = 5 * time.Minute
)

// Pass outcomes.
const (
	outcomeOK        = "ok"
	outcomeFallback  = "fallback"
	outcomeNoUser    = "no_user"
	outcomeCancelled = "cancelled"
)

// ContextSource is the part of the sensing gateway the passes read.
type ContextSource interface {
	Now() time.Time
	CurrentEnvironmentClass(ctx context.Context) float64
	Snapshot(ctx context.Context) sensing.Snapshot
}

// Service implements the relevance pipeline for the single local user.
type Service struct {
	mu        sync.RWMutex
	sessionMu sync.Mutex

	// Collaborators
	store      repository.Store
	sensing    ContextSource
	scorer     scoring.Scorer
	classifier scoring.Classifier
	catalog    catalog.Source
	computer   *features.Computer

	// Configuration
	workerCount int
	threshold   float64
	interval    time.Duration

	// Universe snapshot; replaced wholesale, never mutated in place.
	universe []model.POI
	byKey    map[string]int

	// Stats
	lastTheme    string
	lastPassAt   time.Time
	lastScored   int
	lastRelevant int
	sessions     int

	// Background loop
	started bool
	stopCh  chan struct{}
	done    chan struct{}

	logger logger.Logger
}

// New constructs a Service.
func New(store repository.Store, ctxSrc ContextSource, scorer scoring.Scorer, classifier scoring.Classifier, opts ...Option) *Service {
	s := &Service{
		store:       store,
		sensing:     ctxSrc,
		scorer:      scorer,
		classifier:  classifier,
		computer:    features.NewComputer(store),
		workerCount: runtime.NumCPU() * 2,
		threshold:   DefaultThreshold,
		interval:    defaultInterval,
		byKey:       map[string]int{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// SetUniverse replaces the POI universe. Ids are derived from the external
// keys; duplicate keys keep their first occurrence.
func (s *Service) SetUniverse(pois []model.POI) {
	s.swapUniverse(normalizeUniverse(pois))
}

func (s *Service) swapUniverse(universe []model.POI, byKey map[string]int) {
	s.mu.Lock()
	s.universe = universe
	s.byKey = byKey
	s.mu.Unlock()

	metrics.UpdateUniverseSize(len(universe))
}

func normalizeUniverse(pois []model.POI) ([]model.POI, map[string]int) {
	universe := make([]model.POI, 0, len(pois))
	byKey := make(map[string]int, len(pois))
	for _, p := range pois {
		p.ExternalKey = identity.NormalizeKey(p.ExternalKey)
		if _, dup := byKey[p.ExternalKey]; dup || p.ExternalKey == "" {
			continue
		}
		p.ID = identity.DeriveID(p.ExternalKey)
		byKey[p.ExternalKey] = len(universe)
		universe = append(universe, p)
	}
	return universe, byKey
}

// Universe returns the current universe snapshot. Callers must not modify it.
func (s *Service) Universe() []model.POI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.universe
}

// Lookup finds a POI of the universe by external key.
func (s *Service) Lookup(externalKey string) (model.POI, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byKey[identity.NormalizeKey(externalKey)]
	if !ok {
		return model.POI{}, false
	}
	return s.universe[i], true
}

// RefreshCatalog pulls the universe from the catalog, syncs the POI rows
// and swaps the snapshot. On failure the previous universe stays.
func (s *Service) RefreshCatalog(ctx context.Context) error {
	if s.catalog == nil {
		return ErrNoCatalog
	}

	pois, err := s.catalog.Fetch(ctx)
	if err != nil {
		metrics.RecordCatalogRefresh("failure")
		s.logger.Error(ctx, "catalog fetch failed, keeping previous universe", logger.Error(err))
		return fmt.Errorf("failed to fetch catalog: %w", err)
	}

	universe, byKey := normalizeUniverse(pois)
	if err := s.store.SyncPOIs(ctx, universe); err != nil {
		metrics.RecordCatalogRefresh("failure")
		s.logger.Error(ctx, "catalog sync failed, keeping previous universe", logger.Error(err))
		return err
	}

	s.swapUniverse(universe, byKey)
	metrics.RecordCatalogRefresh("success")
	s.logger.Info(ctx, "catalog refreshed", logger.Int("pois", len(universe)))
	return nil
}

// RunThemePass classifies the current context into a theme and stores it.
// A classifier failure stores explore. Without a user nothing is classified.
func (s *Service) RunThemePass(ctx context.Context) (string, error) {
	start := time.Now()
	if _, ok := s.store.CurrentUser(ctx); !ok {
		metrics.RecordPass("theme", outcomeNoUser, time.Since(start))
		return "", ErrNoCurrentUser
	}

	now := s.sensing.Now()
	v := model.ThemeVector{
		Hour:        float64(now.Hour()),
		Weekday:     float64(openinghours.WeekdayIndex(now)),
		Environment: s.sensing.CurrentEnvironmentClass(ctx),
	}

	outcome := outcomeOK
	label, err := s.classifier.Classify(ctx, v)
	switch {
	case err != nil:
		metrics.RecordModelFailure("theme")
		s.logger.Warn(ctx, "theme model failed, using explore", logger.Error(err))
		label, outcome = model.ThemeExplore, outcomeFallback
	case !features.IsKnownTheme(label):
		s.logger.Warn(ctx, "theme model returned an unknown label, using explore", logger.String("label", label))
		label, outcome = model.ThemeExplore, outcomeFallback
	}

	s.store.SetTheme(ctx, label)

	s.mu.Lock()
	s.lastTheme = label
	s.mu.Unlock()

	metrics.RecordPass("theme", outcome, time.Since(start))
	s.logger.Debug(ctx, "theme pass done",
		logger.String("theme", label),
		logger.Float64("hour", v.Hour),
		logger.Float64("weekday", v.Weekday),
		logger.Float64("environment", v.Environment))
	return label, nil
}

// RunRelevancePass scores every POI of the universe for the current user
// with one context snapshot. Jobs run on a bounded worker pool and each
// writes only its own score row.
func (s *Service) RunRelevancePass(ctx context.Context) error {
	start := time.Now()

	user, ok := s.store.CurrentUser(ctx)
	if !ok {
		metrics.RecordPass("relevance", outcomeNoUser, time.Since(start))
		return ErrNoCurrentUser
	}

	universe := s.Universe()
	snap := s.sensing.Snapshot(ctx)
	fc := features.Context{
		Now:             snap.Now,
		Position:        snap.Position,
		SpeedKmh:        snap.SpeedKmh,
		WeatherCategory: snap.Weather,
		Theme:           user.Theme,
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(max(len(universe), 1)))
	for _, p := range universe {
		if !q.Enqueue(ctx, queue.Job{POI: p, UserID: user.UserID, Context: fc}) {
			s.logger.Warn(ctx, "job rejected by pass queue", logger.String("poi", p.ExternalKey))
		}
	}
	_ = q.Close()

	pool := worker.NewPool(s.workerCount, q, s.computer, s.scorer, s.store)
	scored := pool.Run(ctx)

	if err := ctx.Err(); err != nil {
		metrics.RecordPass("relevance", outcomeCancelled, time.Since(start))
		return fmt.Errorf("relevance pass interrupted after %d of %d POIs: %w", scored, len(universe), err)
	}

	s.mu.Lock()
	s.lastScored = scored
	s.lastPassAt = snap.Now
	s.mu.Unlock()

	metrics.RecordPass("relevance", outcomeOK, time.Since(start))
	s.logger.Info(ctx, "relevance pass done",
		logger.Int("pois", scored),
		logger.Int("workers", pool.Size()),
		logger.Duration("took", time.Since(start)))
	return nil
}

// RelevantPOIs returns the universe POIs whose stored score is strictly
// above the threshold, in universe order.
func (s *Service) RelevantPOIs(ctx context.Context) ([]model.POI, error) {
	user, ok := s.store.CurrentUser(ctx)
	if !ok {
		return nil, ErrNoCurrentUser
	}

	above := s.store.ScoresAbove(ctx, user.UserID, s.threshold)
	universe := s.Universe()

	out := make([]model.POI, 0, len(above))
	for _, p := range universe {
		if _, ok := above[p.ID]; ok {
			out = append(out, p)
		}
	}

	s.mu.Lock()
	s.lastRelevant = len(out)
	s.mu.Unlock()
	metrics.UpdateRelevantPOIs(len(out))
	return out, nil
}

// RunSession runs the theme pass, then the relevance pass, then filters.
// Overlapping sessions are serialised.
func (s *Service) RunSession(ctx context.Context) ([]model.POI, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if _, err := s.RunThemePass(ctx); err != nil {
		return nil, err
	}
	if err := s.RunRelevancePass(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions++
	s.mu.Unlock()

	return s.RelevantPOIs(ctx)
}

// MarkFavorite records a favorite, which also counts as a click.
func (s *Service) MarkFavorite(ctx context.Context, poi model.POI) {
	fav := true
	s.store.RecordInteraction(ctx, identity.DeriveID(identity.NormalizeKey(poi.ExternalKey)), &fav)
	metrics.RecordInteraction("favorite")
}

// RecordClick records a click on poi.
func (s *Service) RecordClick(ctx context.Context, poi model.POI) {
	s.store.RecordInteraction(ctx, identity.DeriveID(identity.NormalizeKey(poi.ExternalKey)), nil)
	metrics.RecordInteraction("click")
}

// Ready reports whether the ledger is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Start runs a session now and then every interval until Stop or ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info(ctx, "starting session loop", logger.Duration("interval", s.interval))
	go s.loop(ctx)
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.scheduledSession(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.scheduledSession(ctx)
		}
	}
}

func (s *Service) scheduledSession(ctx context.Context) {
	relevant, err := s.RunSession(ctx)
	if err != nil {
		s.logger.Warn(ctx, "scheduled session failed", logger.Error(err))
		return
	}
	s.logger.Debug(ctx, "scheduled session done", logger.Int("relevant", len(relevant)))
}

// Stop ends the session loop and waits for a running session to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info(context.Background(), "session loop stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"threshold":    s.threshold,
		"universeSize": len(s.universe),
		"sessions":     s.sessions,
		"lastScored":   s.lastScored,
		"lastRelevant": s.lastRelevant,
	}
	if s.lastTheme != "" {
		stats["theme"] = s.lastTheme
	}
	if !s.lastPassAt.IsZero() {
		stats["lastPassAt"] = s.lastPassAt.Format(time.RFC3339)
	}

	metrics.UpdateUniverseSize(len(s.universe))
	metrics.UpdateWorkerCount(s.workerCount)
	return stats
}
