package repository

import (
	"time"

	gormLogger "gorm.io/gorm/logger"
)

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now for interaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithGormLogger replaces the statement logger.
func WithGormLogger(lg gormLogger.Interface) Option {
	return func(l *Ledger) {
		if lg != nil {
			l.gormLog = lg
		}
	}
}

// WithBatchSize sets the insert batch size used by SyncPOIs.
func WithBatchSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.batchSize = n
		}
	}
}
