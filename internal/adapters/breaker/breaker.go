// Package breaker wraps upstream calls in a sony/gobreaker circuit breaker
// with logging and metrics.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/myplaces/pkg/logger"
	"github.com/okian/myplaces/pkg/metrics"
)

// Default breaker configuration constants.
const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = time.Minute
	defaultHalfOpenRequests = 1
)

// ErrUnavailable is returned when the breaker rejects a call.
var ErrUnavailable = errors.New("upstream unavailable")

// Option applies a configuration option to the Breaker.
type Option func(*settings)

type settings struct {
	failureThreshold uint32
	openTimeout      time.Duration
}

// WithFailureThreshold sets the consecutive failures that open the circuit.
func WithFailureThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.failureThreshold = uint32(n)
		}
	}
}

// WithOpenTimeout sets how long the circuit stays open before probing.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.openTimeout = d
		}
	}
}

// Breaker guards one upstream.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

// New creates a breaker named after the upstream it guards.
func New(name string, opts ...Option) *Breaker {
	s := settings{
		failureThreshold: defaultFailureThreshold,
		openTimeout:      defaultOpenTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}

	metrics.UpdateBreakerState(name, stateToFloat(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: defaultHalfOpenRequests,
		Timeout:     s.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Get().Info(context.Background(), "circuit breaker state transition",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
			metrics.UpdateBreakerState(name, stateToFloat(to))
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})

	return &Breaker{name: name, cb: cb}
}

// Name returns the guarded upstream name.
func (b *Breaker) Name() string { return b.name }

// State returns the current breaker state as a string.
func (b *Breaker) State() string { return b.cb.State().String() }

// Execute runs fn through the breaker. Rejections are reported as
// ErrUnavailable.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := b.cb.Execute(func() (any, error) {
		v, err := fn()
		return v, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordBreakerRequest(b.name, "rejected")
			return zero, fmt.Errorf("%s: %w: %w", b.name, ErrUnavailable, err)
		}
		metrics.RecordBreakerRequest(b.name, "failure")
		return zero, err
	}
	metrics.RecordBreakerRequest(b.name, "success")

	typed, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected result type %T", b.name, res)
	}
	return typed, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
