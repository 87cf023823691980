package stablequeue

import (
	"strconv"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/stablequeue/metrics"
)

// config holds Queue configuration.
type config struct {
	// Capacity bounds the number of jobs waiting for a worker.
	// When the bound is reached, PushJob parks until a worker pops a job.
	// Default: 0 (unbounded, PushJob never blocks).
	Capacity int

	// Metrics receives queue instruments.
	// Default: metrics.NoopProvider.
	Metrics metrics.Provider
}

// defaultConfig centralizes default values for config.
// A queue built without options is the plain unbounded sequenced queue.
func defaultConfig() config {
	return config{
		Capacity: 0, // unbounded
		Metrics:  metrics.NewNoopProvider(),
	}
}

// validateConfig checks invariants options cannot check one at a time.
func validateConfig(cfg *config) error {
	if cfg.Metrics == nil {
		return errorc.With(ErrInvalidConfig, errorc.String("", "metrics provider is nil"))
	}
	return nil
}

// Option configures a Queue. Invalid input makes New return ErrInvalidConfig.
type Option func(*config) error

// WithCapacity bounds the jobs queue to n waiting jobs (must be > 0).
// PushJob parks while n jobs are waiting for a worker.
func WithCapacity(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(
				ErrInvalidConfig,
				errorc.String("", "WithCapacity requires n > 0, got "+strconv.Itoa(n)),
			)
		}
		cfg.Capacity = n
		return nil
	}
}

// WithMetrics sets the provider receiving queue instruments (must be non-nil).
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.Metrics = p
		return nil
	}
}
