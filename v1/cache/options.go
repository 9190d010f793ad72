package cache

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	errs "github.com/mirkobrombin/go-hoard/v1/errors"
	"github.com/mirkobrombin/go-hoard/v1/stats"
)

// DeleteCause reports why an entry was removed.
type DeleteCause int

const (
	// CauseExplicit marks a removal requested by the caller.
	CauseExplicit DeleteCause = iota
	// CauseExpired marks a removal due to TTL expiration.
	CauseExpired
	// CauseEvicted marks a removal due to capacity enforcement.
	CauseEvicted
)

func (c DeleteCause) String() string {
	switch c {
	case CauseExpired:
		return "expired"
	case CauseEvicted:
		return "evicted"
	default:
		return "explicit"
	}
}

// GetHook observes Get operations. exists is false on a miss.
type GetHook[T any] func(key string, value T, exists bool)

// SetHook observes Set operations. replaced is true when an existing value
// was overwritten, in which case old holds the previous value.
type SetHook[T any] func(key string, value T, old T, replaced bool)

// DeleteHook observes entry removal, including expiration and eviction.
type DeleteHook[T any] func(key string, value T, cause DeleteCause)

// Hooks run after the cache guard is released, so they may call back into
// the cache without deadlocking.

type config[T any] struct {
	maxSize     int
	maxSizeSet  bool
	ttl         time.Duration
	ttlSet      bool
	timer       Timer
	timerSet    bool
	def         Default[T]
	defSet      bool
	strategy    Strategy
	strategySet bool

	onGet    GetHook[T]
	onSet    SetHook[T]
	onDelete DeleteHook[T]

	tracker *stats.Tracker
	reg     prometheus.Registerer
	trace   bool
}

// Option configures a cache at construction or through Configure.
type Option[T any] func(*config[T])

// WithMaxSize bounds the number of entries. Zero means unbounded.
func WithMaxSize[T any](n int) Option[T] {
	return func(cfg *config[T]) {
		cfg.maxSize = n
		cfg.maxSizeSet = true
	}
}

// WithTTL sets the default TTL applied by Set. Zero means entries never
// expire.
func WithTTL[T any](ttl time.Duration) Option[T] {
	return func(cfg *config[T]) {
		cfg.ttl = ttl
		cfg.ttlSet = true
	}
}

// WithTimer sets the clock source used for expiration arithmetic.
func WithTimer[T any](t Timer) Option[T] {
	return func(cfg *config[T]) {
		cfg.timer = t
		cfg.timerSet = true
	}
}

// WithDefault installs a cache-wide miss default. Provider defaults are
// resolved outside the guard and their result is stored in the cache.
func WithDefault[T any](d Default[T]) Option[T] {
	return func(cfg *config[T]) {
		cfg.def = d
		cfg.defSet = true
	}
}

// WithStrategy selects the eviction policy. The default is FIFOStrategy.
// The strategy is fixed for the lifetime of the cache.
func WithStrategy[T any](s Strategy) Option[T] {
	return func(cfg *config[T]) {
		cfg.strategy = s
		cfg.strategySet = true
	}
}

// WithGetHook installs an observer for Get operations.
func WithGetHook[T any](h GetHook[T]) Option[T] {
	return func(cfg *config[T]) { cfg.onGet = h }
}

// WithSetHook installs an observer for Set operations.
func WithSetHook[T any](h SetHook[T]) Option[T] {
	return func(cfg *config[T]) { cfg.onSet = h }
}

// WithDeleteHook installs an observer for removals of any cause.
func WithDeleteHook[T any](h DeleteHook[T]) Option[T] {
	return func(cfg *config[T]) { cfg.onDelete = h }
}

// WithStats feeds hit/miss/eviction counts into the given tracker.
func WithStats[T any](t *stats.Tracker) Option[T] {
	return func(cfg *config[T]) { cfg.tracker = t }
}

// WithMetrics enables Prometheus metrics collection using the provided
// registerer.
func WithMetrics[T any](reg prometheus.Registerer) Option[T] {
	return func(cfg *config[T]) { cfg.reg = reg }
}

// WithTracing enables OpenTelemetry tracing for cache operations.
func WithTracing[T any]() Option[T] {
	return func(cfg *config[T]) { cfg.trace = true }
}

func validateTTL(ttl time.Duration) error {
	if ttl < 0 {
		return fmt.Errorf("%w: %v", errs.ErrInvalidTTL, ttl)
	}
	return nil
}

func (cfg *config[T]) validate() error {
	if cfg.maxSizeSet && cfg.maxSize < 0 {
		return fmt.Errorf("%w: %d", errs.ErrInvalidMaxSize, cfg.maxSize)
	}
	if cfg.ttlSet && cfg.ttl < 0 {
		return fmt.Errorf("%w: %v", errs.ErrInvalidTTL, cfg.ttl)
	}
	if cfg.timerSet && cfg.timer == nil {
		return errs.ErrNilTimer
	}
	return nil
}
