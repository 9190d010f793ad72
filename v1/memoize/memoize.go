// Package memoize caches function results keyed by the call arguments.
//
// Each wrapped function derives a deterministic cache key from its identity
// and arguments. Concurrent calls with the same key share one in-flight
// computation, so a slow function body runs at most once per key while its
// callers suspend on the result.
package memoize

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mirkobrombin/go-hoard/v1/cache"
)

// Fn is a memoizable function. Arguments must have stable, deterministic
// string representations for equal values.
type Fn[T any] func(ctx context.Context, args ...any) (T, error)

// KV is a named argument. Named arguments contribute to the cache key
// independently of the order they are passed in.
type KV struct {
	Name  string
	Value any
}

type config struct {
	ttl    time.Duration
	ttlSet bool
	typed  bool
}

// Option configures a memoized function.
type Option func(*config)

// WithTTL overrides the cache's default TTL for stored results. Zero means
// results never expire.
func WithTTL(ttl time.Duration) Option {
	return func(cfg *config) {
		cfg.ttl = ttl
		cfg.ttlSet = true
	}
}

// Typed makes the cache key incorporate each argument's runtime type, so
// calls like f(1) and f(1.0) stop sharing an entry.
func Typed() Option {
	return func(cfg *config) { cfg.typed = true }
}

// Memoized wraps a function with a caching layer.
type Memoized[T any] struct {
	cache  *cache.Cache[T]
	fn     Fn[T]
	name   string
	ttl    time.Duration
	useTTL bool
	typed  bool
	group  singleflight.Group
}

// Wrap memoizes fn using the given cache for storage.
func Wrap[T any](c *cache.Cache[T], fn Fn[T], opts ...Option) *Memoized[T] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Memoized[T]{
		cache:  c,
		fn:     fn,
		name:   funcName(fn),
		ttl:    cfg.ttl,
		useTTL: cfg.ttlSet,
		typed:  cfg.typed,
	}
}

func funcName[T any](fn Fn[T]) string {
	pc := reflect.ValueOf(fn).Pointer()
	if f := runtime.FuncForPC(pc); f != nil {
		return f.Name()
	}
	return fmt.Sprintf("func@%#x", pc)
}

// Key derives the cache key for a call with the given arguments without
// invoking the function. It never mutates the arguments and is stable
// across repeated calls with equal arguments.
func (m *Memoized[T]) Key(args ...any) string {
	d := xxhash.New()
	_, _ = io.WriteString(d, m.name)

	var named []KV
	for _, arg := range args {
		if kv, ok := arg.(KV); ok {
			named = append(named, kv)
			continue
		}
		m.hashArg(d, arg)
	}
	sort.Slice(named, func(i, j int) bool { return named[i].Name < named[j].Name })
	for _, kv := range named {
		_, _ = io.WriteString(d, "\x1d"+kv.Name)
		m.hashArg(d, kv.Value)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

func (m *Memoized[T]) hashArg(d *xxhash.Digest, arg any) {
	if m.typed {
		fmt.Fprintf(d, "\x1f%T", arg)
	}
	fmt.Fprintf(d, "\x1e%v", arg)
}

// Call invokes the memoized function. On a hit the stored result is
// returned without running the function. On a miss the function runs once
// per key even under concurrent calls; waiters suspend until it resolves
// and a canceled waiter unblocks with its context error while the
// computation finishes in the background. Errors propagate to the callers
// and are never cached.
func (m *Memoized[T]) Call(ctx context.Context, args ...any) (T, error) {
	var zero T
	key := m.Key(args...)
	value, ok, err := m.cache.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if ok {
		return value, nil
	}

	ch := m.group.DoChan(key, func() (any, error) {
		result, err := m.fn(ctx, args...)
		if err != nil {
			return nil, err
		}
		// Store the resolved result even if the first waiter has gone
		// away; only a concrete value ever enters the cache.
		if err := m.store(context.WithoutCancel(ctx), key, result); err != nil {
			return nil, err
		}
		return result, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (m *Memoized[T]) store(ctx context.Context, key string, value T) error {
	if m.useTTL {
		return m.cache.SetTTL(ctx, key, value, m.ttl)
	}
	return m.cache.Set(ctx, key, value)
}

// Forget invalidates the cached result for a specific call.
func (m *Memoized[T]) Forget(ctx context.Context, args ...any) (bool, error) {
	return m.cache.Delete(ctx, m.Key(args...))
}

// Uncached returns the original, unwrapped function. Calling it never
// touches the cache.
func (m *Memoized[T]) Uncached() Fn[T] {
	return m.fn
}

// Cache returns the cache backing this memoized function.
func (m *Memoized[T]) Cache() *cache.Cache[T] {
	return m.cache
}

func newMemoized[T any](s cache.Strategy, maxSize int, ttl time.Duration, fn Fn[T], opts ...Option) (*Memoized[T], error) {
	c, err := cache.New(
		cache.WithStrategy[T](s),
		cache.WithMaxSize[T](maxSize),
		cache.WithTTL[T](ttl),
	)
	if err != nil {
		return nil, err
	}
	return Wrap(c, fn, opts...), nil
}

// Memoize wraps fn with its own FIFO cache.
func Memoize[T any](fn Fn[T], maxSize int, ttl time.Duration, opts ...Option) (*Memoized[T], error) {
	return newMemoized(cache.FIFOStrategy, maxSize, ttl, fn, opts...)
}

// FIFO is like Memoize; it names the policy explicitly.
func FIFO[T any](fn Fn[T], maxSize int, ttl time.Duration, opts ...Option) (*Memoized[T], error) {
	return newMemoized(cache.FIFOStrategy, maxSize, ttl, fn, opts...)
}

// LIFO wraps fn with its own LIFO cache.
func LIFO[T any](fn Fn[T], maxSize int, ttl time.Duration, opts ...Option) (*Memoized[T], error) {
	return newMemoized(cache.LIFOStrategy, maxSize, ttl, fn, opts...)
}

// LRU wraps fn with its own LRU cache.
func LRU[T any](fn Fn[T], maxSize int, ttl time.Duration, opts ...Option) (*Memoized[T], error) {
	return newMemoized(cache.LRUStrategy, maxSize, ttl, fn, opts...)
}

// MRU wraps fn with its own MRU cache.
func MRU[T any](fn Fn[T], maxSize int, ttl time.Duration, opts ...Option) (*Memoized[T], error) {
	return newMemoized(cache.MRUStrategy, maxSize, ttl, fn, opts...)
}

// LFU wraps fn with its own LFU cache.
func LFU[T any](fn Fn[T], maxSize int, ttl time.Duration, opts ...Option) (*Memoized[T], error) {
	return newMemoized(cache.LFUStrategy, maxSize, ttl, fn, opts...)
}

// RR wraps fn with its own random-replacement cache.
func RR[T any](fn Fn[T], maxSize int, ttl time.Duration, opts ...Option) (*Memoized[T], error) {
	return newMemoized(cache.RRStrategy, maxSize, ttl, fn, opts...)
}
