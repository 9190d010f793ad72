// Package registry maps names to independently configured cache instances.
// It is pure composition: every cache keeps its own guard and invariants,
// the registry only provides lookup and bulk convenience operations.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mirkobrombin/go-hoard/v1/cache"
	errs "github.com/mirkobrombin/go-hoard/v1/errors"
)

// Registry holds named caches sharing a value type.
type Registry[T any] struct {
	mu     sync.RWMutex
	caches map[string]*cache.Cache[T]
}

// New returns an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{caches: make(map[string]*cache.Cache[T])}
}

// Setup replaces every registered cache with ones built from the given
// per-name options. All previously registered caches are dropped.
func (r *Registry[T]) Setup(settings map[string][]cache.Option[T]) error {
	caches := make(map[string]*cache.Cache[T], len(settings))
	for name, opts := range settings {
		c, err := cache.New(opts...)
		if err != nil {
			return fmt.Errorf("registry: configuring %q: %w", name, err)
		}
		caches[name] = c
	}
	r.mu.Lock()
	r.caches = caches
	r.mu.Unlock()
	return nil
}

// Configure reconfigures the cache registered under name, creating it when
// absent.
func (r *Registry[T]) Configure(name string, opts ...cache.Option[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.caches[name]; ok {
		return c.Configure(opts...)
	}
	c, err := cache.New(opts...)
	if err != nil {
		return err
	}
	r.caches[name] = c
	return nil
}

// Register adds an existing cache under name, replacing any previous
// registration. An empty name is replaced by a generated one; the name in
// effect is returned.
func (r *Registry[T]) Register(name string, c *cache.Cache[T]) string {
	if name == "" {
		name = uuid.NewString()
	}
	r.mu.Lock()
	r.caches[name] = c
	r.mu.Unlock()
	return name
}

// Get returns the cache registered under name.
func (r *Registry[T]) Get(name string) (*cache.Cache[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caches[name]
	if !ok {
		return nil, fmt.Errorf("registry: cache %q: %w", name, errs.ErrNotFound)
	}
	return c, nil
}

// Contains reports whether a cache is registered under name.
func (r *Registry[T]) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.caches[name]
	return ok
}

// Names returns the registered cache names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Caches returns the registered caches in name order.
func (r *Registry[T]) Caches() []*cache.Cache[T] {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*cache.Cache[T], 0, len(names))
	for _, name := range names {
		if c, ok := r.caches[name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ClearAll clears every registered cache.
func (r *Registry[T]) ClearAll() {
	for _, c := range r.Caches() {
		c.Clear()
	}
}
