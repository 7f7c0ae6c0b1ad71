// Package worker drains a relevance pass queue: build the vector, score it,
// write the score.
package worker

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/myplaces/internal/adapters/mq/queue"
	"github.com/okian/myplaces/internal/domain/features"
	"github.com/okian/myplaces/internal/domain/model"
	"github.com/okian/myplaces/pkg/logger"
	"github.com/okian/myplaces/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	// FallbackScore replaces the score of a POI whose model call failed.
	FallbackScore = 0.0
)

// Updater persists a score.
type Updater interface {
	UpsertScore(ctx context.Context, poiID, userID uuid.UUID, score float64)
}

// Scorer computes a relevance score from a feature vector.
type Scorer interface {
	Score(ctx context.Context, v model.FeatureVector) (float64, error)
}

// VectorBuilder builds the feature vector of a POI.
type VectorBuilder interface {
	Vector(ctx context.Context, poi model.POI, c features.Context) model.FeatureVector
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// InMemoryWorker processes jobs until the queue is drained.
type InMemoryWorker struct {
	queue   Queue
	builder VectorBuilder
	scorer  Scorer
	updater Updater
	name    string
	logger  logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, builder VectorBuilder, scorer Scorer, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:   q,
		builder: builder,
		scorer:  scorer,
		updater: updater,
		name:    "worker",
		logger:  logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run processes jobs until the queue is closed and drained or ctx is done.
// It returns the number of processed jobs.
func (w *InMemoryWorker) Run(ctx context.Context) int {
	processed := 0
	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return processed
		case j, ok := <-jobs:
			if !ok {
				return processed
			}
			w.process(ctx, j)
			processed++
		}
	}
}

// process scores one job. A failed model call scores the POI with
// FallbackScore; it never affects other jobs.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value off the channel
	v := w.builder.Vector(ctx, j.POI, j.Context)

	start := time.Now()
	score, err := w.scorer.Score(ctx, v)
	metrics.RecordPOIScored(time.Since(start))

	if err != nil {
		metrics.RecordModelFailure("relevance")
		w.logger.Warn(ctx, "relevance model failed, using fallback score",
			logger.String("poi", j.POI.ExternalKey),
			logger.Error(err))
		score = FallbackScore
	}

	w.updater.UpsertScore(ctx, j.POI.ID, j.UserID, score)
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	logger  logger.Logger
}

// NewPool creates a worker pool. A non-positive workerCount uses a multiple
// of the CPU count.
func NewPool(workerCount int, q Queue, builder VectorBuilder, scorer Scorer, updater Updater) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, builder, scorer, updater,
			WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Run starts every worker and blocks until the queue is drained or ctx is
// done. It returns the number of processed jobs.
func (p *Pool) Run(ctx context.Context) int {
	var (
		wg    sync.WaitGroup
		total atomic.Int64
	)
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *InMemoryWorker) {
			defer wg.Done()
			total.Add(int64(w.Run(ctx)))
		}(w)
	}
	wg.Wait()

	n := int(total.Load())
	p.logger.Debug(ctx, "pool drained", logger.Int("jobs", n), logger.Int("workers", len(p.workers)))
	return n
}
