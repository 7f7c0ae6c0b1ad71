package service

import (
	"time"

	"github.com/okian/myplaces/internal/adapters/catalog"
	"github.com/okian/myplaces/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of relevance pass workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithThreshold sets the relevance threshold. Scores strictly above it are
// relevant.
func WithThreshold(t float64) Option {
	return func(s *Service) {
		s.threshold = t
	}
}

// WithCatalog sets the POI universe source used by RefreshCatalog.
func WithCatalog(src catalog.Source) Option {
	return func(s *Service) {
		s.catalog = src
	}
}

// WithInterval sets how often the background loop runs a session.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
