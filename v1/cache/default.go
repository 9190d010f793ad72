package cache

import "context"

// Default is the value a cache miss resolves to: either a fixed value or a
// provider invoked with the missing key. Providers run outside the cache
// guard, so they may call back into the same cache.
type Default[T any] struct {
	value    T
	provider func(ctx context.Context, key string) (T, error)
	set      bool
}

// Value returns a Default that resolves to a fixed value.
func Value[T any](v T) Default[T] {
	return Default[T]{value: v, set: true}
}

// Provider returns a Default that resolves by calling fn with the missing
// key. When installed cache-wide via WithDefault, the provided value is
// stored in the cache as a side effect of the miss.
func Provider[T any](fn func(ctx context.Context, key string) (T, error)) Default[T] {
	return Default[T]{provider: fn, set: true}
}

func (d Default[T]) isSet() bool { return d.set }

func (d Default[T]) isProvider() bool { return d.provider != nil }

func (d Default[T]) resolve(ctx context.Context, key string) (T, error) {
	if d.provider != nil {
		return d.provider(ctx, key)
	}
	return d.value, nil
}
