// Package scoring defines the relevance and theme model capabilities.
//
// The pipeline treats both as opaque: it hands over a vector and receives a
// score or a label. The local implementations here stand in for a trained
// on-device model.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/myplaces/internal/domain/model"
)

// Scorer computes a relevance score from a feature vector.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, v model.FeatureVector) (float64, error)
}

// Classifier maps a theme vector to a theme label.
type Classifier interface {
	Classify(ctx context.Context, v model.ThemeVector) (string, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, v model.FeatureVector) (float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, v model.FeatureVector) (float64, error) {
	return f(ctx, v)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, v model.ThemeVector) (string, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, v model.ThemeVector) (string, error) {
	return f(ctx, v)
}

// DefaultWeights is the weight vector used when none is configured. Order
// follows model.FeatureVector.
var DefaultWeights = [model.FeatureVectorLen]float64{
	-0.35,  // distance km
	-0.02,  // speed km/h
	-0.4,   // weather category
	1.2,    // is open
	1.5,    // is favorite
	0.15,   // click count
	-0.004, // days since last interaction
	0.05,   // theme code
	0.0,    // category code
}

// DefaultBias is the intercept used when none is configured.
const DefaultBias = 0.3

// Option applies a configuration option to the LogisticScorer.
type Option func(*LogisticScorer)

// WithBias sets the intercept.
func WithBias(b float64) Option {
	return func(s *LogisticScorer) {
		s.bias = b
	}
}

// WithWeights sets the weight vector. A slice of the wrong length is
// recorded and reported by NewLogisticScorer.
func WithWeights(w []float64) Option {
	return func(s *LogisticScorer) {
		if len(w) != model.FeatureVectorLen {
			s.err = fmt.Errorf("%w: got %d, want %d", ErrWeightCount, len(w), model.FeatureVectorLen)
			return
		}
		copy(s.weights[:], w)
	}
}

// LogisticScorer scores with a sigmoid over a weighted feature sum.
type LogisticScorer struct {
	weights [model.FeatureVectorLen]float64
	bias    float64
	err     error
}

// NewLogisticScorer creates a scorer with the default weights overridden by
// opts.
func NewLogisticScorer(opts ...Option) (*LogisticScorer, error) {
	s := &LogisticScorer{
		weights: DefaultWeights,
		bias:    DefaultBias,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

// Score computes sigmoid(w·v + b).
func (s *LogisticScorer) Score(ctx context.Context, v model.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}

	z := s.bias
	for i, x := range v.Values() {
		z += s.weights[i] * x
	}
	score := 1 / (1 + math.Exp(-z))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, ErrNonFinite
	}
	return score, nil
}
