package repository

import (
	"log/slog"
	"time"
)

type storeOptions struct {
	metricsUpdateInterval time.Duration
	logger                *slog.Logger
	inMemory              bool
}

func defaultOptions() storeOptions {
	return storeOptions{
		metricsUpdateInterval: 5 * time.Second,
		logger:                slog.Default(),
	}
}

// Option applies a configuration option to a store.
type Option func(*storeOptions)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *storeOptions) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}

// WithLogger sets the logger file-backed stores report through.
func WithLogger(l *slog.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithInMemory keeps a badger store entirely in memory. The directory is
// ignored and not locked.
func WithInMemory() Option {
	return func(o *storeOptions) {
		o.inMemory = true
	}
}
