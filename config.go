package zsl

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ygrebnov/errorc"

	"github.com/magicxavi/zsl/metrics"
)

// config holds Processor configuration.
type config struct {
	// QueueDepth is the number of (buffer, metadata) pair slots kept
	// resident. The oldest slot is evicted when a buffer arrives with the
	// ring full. Must be at least 2.
	// Default: 4.
	QueueDepth uint

	// FrameListDepth is the metadata history capacity. Metadata older than
	// the last FrameListDepth records is silently discarded if unmatched.
	// Default: 10.
	FrameListDepth uint

	// MatchTolerance bounds the timestamp distance at which a buffer and a
	// metadata record still pair. A delta strictly below the tolerance
	// matches; exact equality always matches.
	// Default: 1ms.
	MatchTolerance time.Duration

	// WaitTimeout bounds the drain loop's wait on the availability signal
	// so the loop periodically re-checks shutdown. A timeout is not an
	// error.
	// Default: 50ms.
	WaitTimeout time.Duration

	// Logger receives structured diagnostics.
	// Default: logrus.StandardLogger().
	Logger logrus.FieldLogger

	// Metrics constructs the instruments the processor records to.
	// Default: metrics.NewNoopProvider().
	Metrics metrics.Provider
}

// defaultConfig centralizes default values for config.
// These defaults are applied by New before options run.
func defaultConfig() config {
	return config{
		QueueDepth:     4,
		FrameListDepth: 10,
		MatchTolerance: time.Millisecond,
		WaitTimeout:    50 * time.Millisecond,
		Logger:         logrus.StandardLogger(),
		Metrics:        metrics.NewNoopProvider(),
	}
}

// validateConfig performs lightweight invariants checks after all options
// have been applied.
func validateConfig(cfg *config) error {
	if cfg.QueueDepth < 2 {
		return errorc.With(ErrInvalidConfig, errorc.String("", "queue depth must be at least 2"))
	}
	if cfg.FrameListDepth == 0 {
		return errorc.With(ErrInvalidConfig, errorc.String("", "frame list depth must be positive"))
	}
	if cfg.MatchTolerance <= 0 {
		return errorc.With(ErrInvalidConfig, errorc.String("", "match tolerance must be positive"))
	}
	if cfg.WaitTimeout <= 0 {
		return errorc.With(ErrInvalidConfig, errorc.String("", "wait timeout must be positive"))
	}
	return nil
}

// Option configures a Processor. Use New(client, source, streams, opts...)
// to construct a Processor via options.
type Option func(*config) error

// WithQueueDepth sets the pair-slot ring capacity (must be >= 2).
func WithQueueDepth(n uint) Option {
	return func(cfg *config) error {
		if n < 2 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithQueueDepth requires n >= 2"))
		}
		cfg.QueueDepth = n
		return nil
	}
}

// WithFrameListDepth sets the metadata history capacity (must be > 0).
func WithFrameListDepth(n uint) Option {
	return func(cfg *config) error {
		if n == 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithFrameListDepth requires n > 0"))
		}
		cfg.FrameListDepth = n
		return nil
	}
}

// WithMatchTolerance sets the timestamp tolerance for pairing (default 1ms).
func WithMatchTolerance(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMatchTolerance requires d > 0"))
		}
		cfg.MatchTolerance = d
		return nil
	}
}

// WithWaitTimeout bounds the drain loop's wait on the availability signal
// (default 50ms).
func WithWaitTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithWaitTimeout requires d > 0"))
		}
		cfg.WaitTimeout = d
		return nil
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(cfg *config) error {
		if l == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithLogger requires a non-nil logger"))
		}
		cfg.Logger = l
		return nil
	}
}

// WithMetrics sets the metrics provider used to construct instruments.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.Metrics = p
		return nil
	}
}
