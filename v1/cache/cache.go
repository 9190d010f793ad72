package cache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	errs "github.com/mirkobrombin/go-hoard/v1/errors"
	"github.com/mirkobrombin/go-hoard/v1/stats"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-hoard/v1/cache")

// Cache is a thread-safe in-memory key/value cache with a bounded capacity,
// per-entry TTL expiration and a pluggable eviction policy.
//
// T is the type of the stored values. Keys are strings.
type Cache[T any] struct {
	mu      sync.Mutex
	items   map[string]*entry[T]
	policy  policy
	nextSeq uint64

	maxSize int
	ttl     time.Duration
	timer   Timer
	def     Default[T]

	onGet    GetHook[T]
	onSet    SetHook[T]
	onDelete DeleteHook[T]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	tracker   *stats.Tracker

	hitCounter      prometheus.Counter
	missCounter     prometheus.Counter
	evictionCounter prometheus.Counter
	expiredCounter  prometheus.Counter
	latencyHist     prometheus.Histogram
	traceEnabled    bool
}

type entry[T any] struct {
	value     T
	expiresAt time.Time // zero means the entry never expires
	seq       uint64    // insertion order, for stable iteration
}

// Item is a key/value pair returned by snapshot views.
type Item[T any] struct {
	Key   string
	Value T
}

// New returns a cache configured by the given options. The default is an
// unbounded FIFO cache whose entries never expire, timed by the wall clock.
func New[T any](opts ...Option[T]) (*Cache[T], error) {
	cfg := config[T]{timer: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &Cache[T]{
		items:        make(map[string]*entry[T]),
		policy:       newPolicy(cfg.strategy),
		maxSize:      cfg.maxSize,
		ttl:          cfg.ttl,
		timer:        cfg.timer,
		def:          cfg.def,
		onGet:        cfg.onGet,
		onSet:        cfg.onSet,
		onDelete:     cfg.onDelete,
		tracker:      cfg.tracker,
		traceEnabled: cfg.trace,
	}
	if cfg.reg != nil {
		c.registerMetrics(cfg.reg)
	}
	return c, nil
}

// NewFIFO returns a cache that evicts the oldest inserted key first.
func NewFIFO[T any](opts ...Option[T]) (*Cache[T], error) {
	return New(append([]Option[T]{WithStrategy[T](FIFOStrategy)}, opts...)...)
}

// NewLIFO returns a cache that evicts the most recently inserted key first.
func NewLIFO[T any](opts ...Option[T]) (*Cache[T], error) {
	return New(append([]Option[T]{WithStrategy[T](LIFOStrategy)}, opts...)...)
}

// NewLRU returns a cache that evicts the least recently accessed key first.
func NewLRU[T any](opts ...Option[T]) (*Cache[T], error) {
	return New(append([]Option[T]{WithStrategy[T](LRUStrategy)}, opts...)...)
}

// NewMRU returns a cache that evicts the most recently accessed key first.
func NewMRU[T any](opts ...Option[T]) (*Cache[T], error) {
	return New(append([]Option[T]{WithStrategy[T](MRUStrategy)}, opts...)...)
}

// NewLFU returns a cache that evicts the least frequently accessed key
// first.
func NewLFU[T any](opts ...Option[T]) (*Cache[T], error) {
	return New(append([]Option[T]{WithStrategy[T](LFUStrategy)}, opts...)...)
}

// NewRR returns a cache that evicts a uniformly random key.
func NewRR[T any](opts ...Option[T]) (*Cache[T], error) {
	return New(append([]Option[T]{WithStrategy[T](RRStrategy)}, opts...)...)
}

func (c *Cache[T]) registerMetrics(reg prometheus.Registerer) {
	c.hitCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hoard_cache_hits_total",
		Help: "Total number of cache hits",
	})
	c.missCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hoard_cache_misses_total",
		Help: "Total number of cache misses",
	})
	c.evictionCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hoard_cache_evictions_total",
		Help: "Total number of cache evictions",
	})
	c.expiredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hoard_cache_expirations_total",
		Help: "Total number of expired entries removed",
	})
	c.latencyHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hoard_cache_latency_seconds",
		Help:    "Latency of cache operations",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(c.hitCounter, c.missCounter, c.evictionCounter, c.expiredCounter, c.latencyHist)
}

// opSpan carries per-operation tracing and latency state.
type opSpan struct {
	span    trace.Span
	start   time.Time
	hist    prometheus.Histogram
	tracing bool
}

func (c *Cache[T]) beginOp(ctx context.Context, op string) (context.Context, *opSpan) {
	s := &opSpan{hist: c.latencyHist, tracing: c.traceEnabled}
	if !s.tracing && s.hist == nil {
		return ctx, s
	}
	s.start = time.Now()
	if s.tracing {
		ctx, s.span = tracer.Start(ctx, op)
	}
	return ctx, s
}

func (s *opSpan) result(v string) {
	if s.tracing {
		s.span.SetAttributes(attribute.String("hoard.cache.result", v))
	}
}

func (s *opSpan) end() {
	if !s.tracing && s.hist == nil {
		return
	}
	latency := time.Since(s.start)
	if s.tracing {
		s.span.SetAttributes(attribute.Int64("hoard.cache.latency_ms", latency.Milliseconds()))
		s.span.End()
	}
	if s.hist != nil {
		s.hist.Observe(latency.Seconds())
	}
}

// deletion records a removal performed under the guard so the delete hook
// can be fired after the guard is released.
type deletion[T any] struct {
	key   string
	value T
	cause DeleteCause
}

func (c *Cache[T]) notify(dels []deletion[T]) {
	for _, d := range dels {
		switch d.cause {
		case CauseEvicted:
			c.evictions.Add(1)
			if c.tracker != nil {
				c.tracker.Eviction(1)
			}
			if c.evictionCounter != nil {
				c.evictionCounter.Inc()
			}
		case CauseExpired:
			if c.expiredCounter != nil {
				c.expiredCounter.Inc()
			}
		}
		if c.onDelete != nil {
			c.onDelete(d.key, d.value, d.cause)
		}
	}
}

func (c *Cache[T]) trackEntries(n int) {
	if c.tracker != nil {
		c.tracker.SetEntries(uint64(n))
	}
}

func (c *Cache[T]) recordHit() {
	c.hits.Add(1)
	if c.tracker != nil {
		c.tracker.Hit(1)
	}
	if c.hitCounter != nil {
		c.hitCounter.Inc()
	}
}

func (c *Cache[T]) recordMiss() {
	c.misses.Add(1)
	if c.tracker != nil {
		c.tracker.Miss(1)
	}
	if c.missCounter != nil {
		c.missCounter.Inc()
	}
}

func (c *Cache[T]) expiredLocked(ent *entry[T], now time.Time) bool {
	return !ent.expiresAt.IsZero() && !now.Before(ent.expiresAt)
}

// removeLocked drops the entry and its order bookkeeping in one step so
// the map and the policy stay mutually consistent.
func (c *Cache[T]) removeLocked(key string, cause DeleteCause) deletion[T] {
	ent := c.items[key]
	c.policy.onRemove(key)
	delete(c.items, key)
	return deletion[T]{key: key, value: ent.value, cause: cause}
}

// sweepLocked removes every expired entry.
func (c *Cache[T]) sweepLocked(now time.Time) []deletion[T] {
	var dels []deletion[T]
	for key, ent := range c.items {
		if c.expiredLocked(ent, now) {
			dels = append(dels, c.removeLocked(key, CauseExpired))
		}
	}
	return dels
}

// lookup is the shared read path. It lazily removes an expired entry and
// records the access with the policy on a hit.
func (c *Cache[T]) lookup(ctx context.Context, key string) (T, bool, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	default:
	}
	var dels []deletion[T]
	c.mu.Lock()
	ent, ok := c.items[key]
	if ok && c.expiredLocked(ent, c.timer()) {
		dels = append(dels, c.removeLocked(key, CauseExpired))
		ok = false
	}
	var value T
	if ok {
		value = ent.value
		c.policy.onAccess(key)
	}
	size := len(c.items)
	c.mu.Unlock()

	c.trackEntries(size)
	c.notify(dels)
	if ok {
		c.recordHit()
	} else {
		c.recordMiss()
	}
	if c.onGet != nil {
		c.onGet(key, value, ok)
	}
	return value, ok, nil
}

// Get returns the value for key. The boolean reports whether the key was
// found live in the cache. On a miss the cache-wide default, if any, is
// resolved; a provider default runs outside the guard and its result is
// stored under the key (last write wins if another writer races it).
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool, error) {
	ctx, op := c.beginOp(ctx, "Cache.Get")
	defer op.end()

	value, ok, err := c.lookup(ctx, key)
	if err != nil {
		return value, false, err
	}
	if ok {
		op.result("hit")
		return value, true, nil
	}
	op.result("miss")
	c.mu.Lock()
	def := c.def
	c.mu.Unlock()
	if !def.isSet() {
		return value, false, nil
	}
	resolved, err := def.resolve(ctx, key)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if def.isProvider() {
		if err := c.Set(ctx, key, resolved); err != nil {
			var zero T
			return zero, false, err
		}
	}
	return resolved, false, nil
}

// GetDefault is like Get but resolves a per-call default instead of the
// cache-wide one. The resolved default is never stored.
func (c *Cache[T]) GetDefault(ctx context.Context, key string, def Default[T]) (T, bool, error) {
	ctx, op := c.beginOp(ctx, "Cache.Get")
	defer op.end()

	value, ok, err := c.lookup(ctx, key)
	if err != nil {
		return value, false, err
	}
	if ok {
		op.result("hit")
		return value, true, nil
	}
	op.result("miss")
	if !def.isSet() {
		return value, false, nil
	}
	resolved, err := def.resolve(ctx, key)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return resolved, false, nil
}

// Set stores the value under key with the cache's default TTL, replacing
// any previous value. Replacing a key moves it to the newest position in
// the eviction order, as if it had been deleted and reinserted.
func (c *Cache[T]) Set(ctx context.Context, key string, value T) error {
	return c.setEntry(ctx, key, value, 0, true, false)
}

// SetTTL is like Set but overrides the default TTL for this entry. A zero
// ttl means the entry never expires, even when a default TTL is set.
func (c *Cache[T]) SetTTL(ctx context.Context, key string, value T, ttl time.Duration) error {
	return c.setEntry(ctx, key, value, ttl, false, false)
}

// Add stores the value only if the key is not already live. Adding over an
// existing key leaves its value and TTL intact.
func (c *Cache[T]) Add(ctx context.Context, key string, value T) error {
	return c.setEntry(ctx, key, value, 0, true, true)
}

// AddTTL is like Add with an explicit TTL.
func (c *Cache[T]) AddTTL(ctx context.Context, key string, value T, ttl time.Duration) error {
	return c.setEntry(ctx, key, value, ttl, false, true)
}

func (c *Cache[T]) setEntry(ctx context.Context, key string, value T, ttl time.Duration, useDefault, onlyIfAbsent bool) error {
	ctx, op := c.beginOp(ctx, "Cache.Set")
	defer op.end()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if !useDefault {
		if err := validateTTL(ttl); err != nil {
			return err
		}
	}

	var dels []deletion[T]
	c.mu.Lock()
	if useDefault {
		ttl = c.ttl
	}
	now := c.timer()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	old, had := c.items[key]
	if had && c.expiredLocked(old, now) {
		dels = append(dels, c.removeLocked(key, CauseExpired))
		had = false
	}

	var oldValue T
	switch {
	case had && onlyIfAbsent:
		c.mu.Unlock()
		c.notify(dels)
		return nil
	case had:
		oldValue = old.value
		// A replace resets the key's eviction-order position, matching
		// delete-then-insert semantics across all policies.
		c.policy.onRemove(key)
		c.policy.onInsert(key)
		c.nextSeq++
		old.value = value
		old.expiresAt = expiresAt
		old.seq = c.nextSeq
	default:
		// Evict before inserting so policies that evict from the newest
		// end never select the incoming key itself.
		if c.maxSize > 0 && len(c.items) >= c.maxSize {
			dels = append(dels, c.sweepLocked(now)...)
			for len(c.items) >= c.maxSize {
				victim, ok := c.policy.victim()
				if !ok {
					break
				}
				dels = append(dels, c.removeLocked(victim, CauseEvicted))
			}
		}
		c.nextSeq++
		c.items[key] = &entry[T]{value: value, expiresAt: expiresAt, seq: c.nextSeq}
		c.policy.onInsert(key)
	}
	size := len(c.items)
	c.mu.Unlock()

	c.trackEntries(size)
	c.notify(dels)
	if c.onSet != nil {
		c.onSet(key, value, oldValue, had)
	}
	return nil
}

// Delete removes key and reports whether an entry was removed. Deleting an
// absent key is not an error.
func (c *Cache[T]) Delete(ctx context.Context, key string) (bool, error) {
	ctx, op := c.beginOp(ctx, "Cache.Delete")
	defer op.end()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	var dels []deletion[T]
	c.mu.Lock()
	ent, ok := c.items[key]
	if ok {
		cause := CauseExplicit
		if c.expiredLocked(ent, c.timer()) {
			cause = CauseExpired
		}
		dels = append(dels, c.removeLocked(key, cause))
	}
	size := len(c.items)
	c.mu.Unlock()

	c.trackEntries(size)
	c.notify(dels)
	removed := ok && dels[0].cause == CauseExplicit
	return removed, nil
}

// Has reports whether key is live. It counts as an access for recency and
// frequency based policies.
func (c *Cache[T]) Has(key string) bool {
	var dels []deletion[T]
	c.mu.Lock()
	ent, ok := c.items[key]
	if ok && c.expiredLocked(ent, c.timer()) {
		dels = append(dels, c.removeLocked(key, CauseExpired))
		ok = false
	}
	if ok {
		c.policy.onAccess(key)
	}
	c.mu.Unlock()
	c.notify(dels)
	return ok
}

// Size returns the number of live entries. Expired entries are purged
// first so the count never includes stale data.
func (c *Cache[T]) Size() int {
	c.mu.Lock()
	dels := c.sweepLocked(c.timer())
	size := len(c.items)
	c.mu.Unlock()
	c.trackEntries(size)
	c.notify(dels)
	return size
}

// Full reports whether the cache is at capacity. An unbounded cache is
// never full.
func (c *Cache[T]) Full() bool {
	c.mu.Lock()
	maxSize := c.maxSize
	c.mu.Unlock()
	if maxSize == 0 {
		return false
	}
	return c.Size() >= maxSize
}

// Clear removes all entries without invoking delete hooks.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*entry[T])
	c.policy.reset()
	c.mu.Unlock()
	c.trackEntries(0)
}

// snapshot returns the live items sorted by insertion order, purging any
// expired entries found along the way.
func (c *Cache[T]) snapshot() ([]Item[T], []deletion[T]) {
	c.mu.Lock()
	dels := c.sweepLocked(c.timer())
	type seqItem struct {
		item Item[T]
		seq  uint64
	}
	ordered := make([]seqItem, 0, len(c.items))
	for key, ent := range c.items {
		ordered = append(ordered, seqItem{item: Item[T]{Key: key, Value: ent.value}, seq: ent.seq})
	}
	c.mu.Unlock()
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })
	items := make([]Item[T], len(ordered))
	for i, si := range ordered {
		items[i] = si.item
	}
	return items, dels
}

// Copy returns a snapshot of the live entries as a plain map.
func (c *Cache[T]) Copy() map[string]T {
	items, dels := c.snapshot()
	c.notify(dels)
	out := make(map[string]T, len(items))
	for _, it := range items {
		out[it.Key] = it.Value
	}
	return out
}

// Keys returns the live keys in insertion order. The result is a stable
// snapshot; concurrent mutation does not invalidate it.
func (c *Cache[T]) Keys() []string {
	items, dels := c.snapshot()
	c.notify(dels)
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}

// Values returns the live values in insertion order as a stable snapshot.
func (c *Cache[T]) Values() []T {
	items, dels := c.snapshot()
	c.notify(dels)
	values := make([]T, len(items))
	for i, it := range items {
		values[i] = it.Value
	}
	return values
}

// Items returns the live key/value pairs in insertion order as a stable
// snapshot.
func (c *Cache[T]) Items() []Item[T] {
	items, dels := c.snapshot()
	c.notify(dels)
	return items
}

// PopItem removes and returns one entry following the eviction policy's
// victim order, after purging expired entries. ok is false when the cache
// is empty.
func (c *Cache[T]) PopItem() (key string, value T, ok bool) {
	var dels []deletion[T]
	c.mu.Lock()
	dels = c.sweepLocked(c.timer())
	victim, found := c.policy.victim()
	if found {
		key = victim
		value = c.items[victim].value
		dels = append(dels, c.removeLocked(victim, CauseExplicit))
		ok = true
	}
	size := len(c.items)
	c.mu.Unlock()
	c.trackEntries(size)
	c.notify(dels)
	return key, value, ok
}

// GetTTL returns the remaining TTL for key. ok is false when the key is
// absent or expired. Live entries without an expiration return NoExpiry.
func (c *Cache[T]) GetTTL(key string) (time.Duration, bool) {
	var dels []deletion[T]
	c.mu.Lock()
	now := c.timer()
	ent, ok := c.items[key]
	if ok && c.expiredLocked(ent, now) {
		dels = append(dels, c.removeLocked(key, CauseExpired))
		ok = false
	}
	var remaining time.Duration
	if ok {
		if ent.expiresAt.IsZero() {
			remaining = NoExpiry
		} else {
			remaining = ent.expiresAt.Sub(now)
		}
	}
	c.mu.Unlock()
	c.notify(dels)
	return remaining, ok
}

// DeleteExpired removes every expired entry and returns how many were
// removed.
func (c *Cache[T]) DeleteExpired() int {
	c.mu.Lock()
	dels := c.sweepLocked(c.timer())
	size := len(c.items)
	c.mu.Unlock()
	c.trackEntries(size)
	c.notify(dels)
	return len(dels)
}

// Expirations returns the expiration instants of entries that have one.
func (c *Cache[T]) Expirations() map[string]time.Time {
	c.mu.Lock()
	out := make(map[string]time.Time)
	for key, ent := range c.items {
		if !ent.expiresAt.IsZero() {
			out[key] = ent.expiresAt
		}
	}
	c.mu.Unlock()
	return out
}

// liveKeys returns a snapshot of the live keys matched by sel.
func (c *Cache[T]) liveKeys(sel Selector) ([]string, []deletion[T]) {
	c.mu.Lock()
	dels := c.sweepLocked(c.timer())
	keys := make([]string, 0, len(c.items))
	for key := range c.items {
		if sel(key) {
			keys = append(keys, key)
		}
	}
	c.mu.Unlock()
	sort.Strings(keys)
	return keys, dels
}

// GetMany returns the live entries whose keys match sel. The selection is
// evaluated against a snapshot; each key is then read under its own guard
// acquisition so one slow observer cannot block unrelated keys.
func (c *Cache[T]) GetMany(ctx context.Context, sel Selector) (map[string]T, error) {
	keys, dels := c.liveKeys(sel)
	c.notify(dels)
	out := make(map[string]T, len(keys))
	for _, key := range keys {
		value, ok, err := c.lookup(ctx, key)
		if err != nil {
			return out, err
		}
		if ok {
			out[key] = value
		}
	}
	return out, nil
}

// SetMany stores every key/value pair with the cache's default TTL. Each
// pair is stored under its own guard acquisition.
func (c *Cache[T]) SetMany(ctx context.Context, items map[string]T) error {
	for key, value := range items {
		if err := c.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetManyTTL is like SetMany with an explicit TTL for every pair.
func (c *Cache[T]) SetManyTTL(ctx context.Context, items map[string]T, ttl time.Duration) error {
	for key, value := range items {
		if err := c.SetTTL(ctx, key, value, ttl); err != nil {
			return err
		}
	}
	return nil
}

// AddMany stores the pairs whose keys are not already live.
func (c *Cache[T]) AddMany(ctx context.Context, items map[string]T) error {
	for key, value := range items {
		if err := c.Add(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMany removes the live keys matched by sel and returns how many
// were removed.
func (c *Cache[T]) DeleteMany(ctx context.Context, sel Selector) (int, error) {
	keys, dels := c.liveKeys(sel)
	c.notify(dels)
	count := 0
	for _, key := range keys {
		removed, err := c.Delete(ctx, key)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

// Configure changes the cache's runtime settings: maximum size, default
// TTL, timer and miss default. The eviction strategy is fixed at
// construction and cannot be changed. Shrinking the maximum size evicts
// entries down to the new bound.
func (c *Cache[T]) Configure(opts ...Option[T]) error {
	var cfg config[T]
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.strategySet {
		return errs.ErrImmutableStrategy
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	var dels []deletion[T]
	c.mu.Lock()
	if cfg.maxSizeSet {
		c.maxSize = cfg.maxSize
	}
	if cfg.ttlSet {
		c.ttl = cfg.ttl
	}
	if cfg.timerSet {
		c.timer = cfg.timer
	}
	if cfg.defSet {
		c.def = cfg.def
	}
	if cfg.onGet != nil {
		c.onGet = cfg.onGet
	}
	if cfg.onSet != nil {
		c.onSet = cfg.onSet
	}
	if cfg.onDelete != nil {
		c.onDelete = cfg.onDelete
	}
	if c.maxSize > 0 && len(c.items) > c.maxSize {
		dels = c.sweepLocked(c.timer())
		for len(c.items) > c.maxSize {
			victim, ok := c.policy.victim()
			if !ok {
				break
			}
			dels = append(dels, c.removeLocked(victim, CauseEvicted))
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	c.trackEntries(size)
	c.notify(dels)
	return nil
}

// Stats returns a snapshot of the cache's own counters.
func (c *Cache[T]) Stats() stats.Stats {
	c.mu.Lock()
	size := len(c.items)
	c.mu.Unlock()
	return stats.Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   uint64(size),
	}
}
