package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	errs "github.com/mirkobrombin/go-hoard/v1/errors"
	"github.com/mirkobrombin/go-hoard/v1/stats"
)

// fakeClock is a deterministic Timer for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c, err := New[string]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Set(ctx, "foo", "bar"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok, _ := c.Get(ctx, "foo"); !ok || v != "bar" {
		t.Fatalf("expected bar, got %q (ok=%v)", v, ok)
	}
	if err := c.Set(ctx, "foo", "baz"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _, _ := c.Get(ctx, "foo"); v != "baz" {
		t.Fatalf("expected most recent value baz, got %q", v)
	}
	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Fatalf("expected miss for unknown key")
	}
}

func TestCacheGetDefault(t *testing.T) {
	ctx := context.Background()
	c, _ := New[int]()

	if v, ok, _ := c.GetDefault(ctx, "n", Value(42)); ok || v != 42 {
		t.Fatalf("expected default 42, got %d (ok=%v)", v, ok)
	}
	if c.Has("n") {
		t.Fatalf("per-call default must not be stored")
	}

	calls := 0
	provider := Provider(func(ctx context.Context, key string) (int, error) {
		calls++
		return len(key), nil
	})
	if v, _, _ := c.GetDefault(ctx, "four", provider); v != 4 {
		t.Fatalf("expected provider result 4, got %d", v)
	}
	if c.Has("four") {
		t.Fatalf("per-call provider result must not be stored")
	}
	if calls != 1 {
		t.Fatalf("expected one provider call, got %d", calls)
	}
}

func TestCacheDefaultProviderStored(t *testing.T) {
	ctx := context.Background()
	c, _ := New(WithDefault(Provider(func(ctx context.Context, key string) (string, error) {
		return "made:" + key, nil
	})))
	v, ok, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || v != "made:k" {
		t.Fatalf("expected provider value on miss, got %q (ok=%v)", v, ok)
	}
	// The provided value is stored as a side effect of the miss.
	if v, ok, _ := c.Get(ctx, "k"); !ok || v != "made:k" {
		t.Fatalf("expected stored provider value, got %q (ok=%v)", v, ok)
	}
}

func TestCacheDefaultProviderReentry(t *testing.T) {
	ctx := context.Background()
	var c *Cache[string]
	c, _ = New(WithDefault(Provider(func(ctx context.Context, key string) (string, error) {
		// The provider runs outside the guard, so it may call back in.
		if err := c.Set(ctx, "side", "effect"); err != nil {
			return "", err
		}
		return "v", nil
	})))
	if _, _, err := c.Get(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Has("side") {
		t.Fatalf("expected provider re-entry to succeed")
	}
}

func TestCacheTTL(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c, _ := New(WithTTL[string](time.Minute), WithTimer[string](clk.Now))

	if err := c.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok, _ := c.Get(ctx, "a"); !ok || v != "1" {
		t.Fatalf("expected hit before expiry")
	}
	if ttl, ok := c.GetTTL("a"); !ok || ttl != time.Minute {
		t.Fatalf("expected full TTL remaining, got %v (ok=%v)", ttl, ok)
	}

	clk.Advance(30 * time.Second)
	if ttl, _ := c.GetTTL("a"); ttl != 30*time.Second {
		t.Fatalf("expected 30s remaining, got %v", ttl)
	}

	clk.Advance(30 * time.Second)
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatalf("expected expiry at the deadline")
	}
	if c.Has("a") {
		t.Fatalf("expected Has to be false after expiry")
	}
	if _, ok := c.GetTTL("a"); ok {
		t.Fatalf("expected no TTL for expired key")
	}
}

func TestCacheTTLOverride(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c, _ := New(WithTTL[string](time.Minute), WithTimer[string](clk.Now))

	// An explicit zero TTL overrides the default, including to "never".
	if err := c.SetTTL(ctx, "forever", "v", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.SetTTL(ctx, "short", "v", time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clk.Advance(time.Hour)
	if !c.Has("forever") {
		t.Fatalf("expected zero-TTL entry to never expire")
	}
	if c.Has("short") {
		t.Fatalf("expected short entry to expire")
	}
	if ttl, ok := c.GetTTL("forever"); !ok || ttl != NoExpiry {
		t.Fatalf("expected NoExpiry, got %v (ok=%v)", ttl, ok)
	}
}

func TestCacheNegativeTTL(t *testing.T) {
	ctx := context.Background()
	c, _ := New[string]()
	if err := c.SetTTL(ctx, "k", "v", -time.Second); !errors.Is(err, errs.ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
}

func TestCacheDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	c, _ := New[string]()
	_ = c.Set(ctx, "a", "1")
	size := c.Size()

	removed, err := c.Delete(ctx, "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Fatalf("expected not-removed for absent key")
	}
	if c.Size() != size {
		t.Fatalf("size changed by deleting an absent key")
	}

	if removed, _ := c.Delete(ctx, "a"); !removed {
		t.Fatalf("expected removal of existing key")
	}
}

func TestCacheMaxSizeInvariant(t *testing.T) {
	ctx := context.Background()
	for _, s := range []Strategy{FIFOStrategy, LIFOStrategy, LRUStrategy, MRUStrategy, LFUStrategy, RRStrategy} {
		c, _ := New(WithStrategy[int](s), WithMaxSize[int](5))
		for i := 0; i < 100; i++ {
			_ = c.Set(ctx, fmt.Sprintf("k%d", i), i)
			if c.Size() > 5 {
				t.Fatalf("%v: size %d exceeds maxsize", s, c.Size())
			}
		}
		if c.Size() != 5 {
			t.Fatalf("%v: expected full cache, got %d", s, c.Size())
		}
		if !c.Full() {
			t.Fatalf("%v: expected Full", s)
		}
	}
}

func TestCacheUnboundedNeverFull(t *testing.T) {
	ctx := context.Background()
	c, _ := New[int]()
	for i := 0; i < 1000; i++ {
		_ = c.Set(ctx, fmt.Sprintf("k%d", i), i)
	}
	if c.Full() {
		t.Fatalf("unbounded cache must never be full")
	}
	if c.Size() != 1000 {
		t.Fatalf("expected 1000 entries, got %d", c.Size())
	}
}

func TestCacheAdd(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c, _ := New(WithTimer[string](clk.Now))

	_ = c.SetTTL(ctx, "a", "original", time.Minute)
	if err := c.Add(ctx, "a", "replacement"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _, _ := c.Get(ctx, "a"); v != "original" {
		t.Fatalf("Add must not replace an existing value")
	}
	if ttl, _ := c.GetTTL("a"); ttl != time.Minute {
		t.Fatalf("Add must leave the original TTL intact, got %v", ttl)
	}

	if err := c.Add(ctx, "b", "new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Has("b") {
		t.Fatalf("expected Add to store an absent key")
	}
}

func TestCacheSnapshotsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c, _ := New(WithStrategy[int](LRUStrategy), WithTimer[int](clk.Now))

	_ = c.Set(ctx, "a", 1)
	_ = c.Set(ctx, "b", 2)
	_ = c.SetTTL(ctx, "stale", 0, time.Second)
	_ = c.Set(ctx, "c", 3)
	_, _, _ = c.Get(ctx, "a") // recency must not affect iteration order

	clk.Advance(2 * time.Second)

	keys := c.Keys()
	want := []string{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, keys)
		}
	}

	items := c.Items()
	for i, it := range items {
		if it.Key != want[i] {
			t.Fatalf("items out of insertion order: %v", items)
		}
	}

	cp := c.Copy()
	if len(cp) != 3 || cp["b"] != 2 {
		t.Fatalf("unexpected copy: %v", cp)
	}
	if _, ok := cp["stale"]; ok {
		t.Fatalf("expired entry leaked into snapshot")
	}
}

func TestCachePopItem(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c, _ := NewFIFO(WithTimer[int](clk.Now))

	_ = c.SetTTL(ctx, "stale", 0, time.Second)
	_ = c.Set(ctx, "a", 1)
	_ = c.Set(ctx, "b", 2)
	clk.Advance(2 * time.Second)

	key, value, ok := c.PopItem()
	if !ok || key != "a" || value != 1 {
		t.Fatalf("expected (a, 1), got (%q, %d, %v)", key, value, ok)
	}
	key, _, _ = c.PopItem()
	if key != "b" {
		t.Fatalf("expected b, got %q", key)
	}
	if _, _, ok := c.PopItem(); ok {
		t.Fatalf("expected empty cache")
	}
}

func TestCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := New(WithMaxSize[int](10))
	for i := 0; i < 5; i++ {
		_ = c.Set(ctx, fmt.Sprintf("k%d", i), i)
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache after Clear")
	}
	// The cache stays usable after Clear.
	_ = c.Set(ctx, "a", 1)
	if !c.Has("a") {
		t.Fatalf("expected cache to accept writes after Clear")
	}
}

func TestCacheHooks(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()

	var gets, sets int
	deletes := make(map[DeleteCause]int)
	c, _ := NewFIFO(
		WithMaxSize[string](2),
		WithTimer[string](clk.Now),
		WithGetHook(func(key string, value string, exists bool) { gets++ }),
		WithSetHook(func(key, value, old string, replaced bool) { sets++ }),
		WithDeleteHook(func(key, value string, cause DeleteCause) { deletes[cause]++ }),
	)

	_ = c.Set(ctx, "a", "1")
	_ = c.Set(ctx, "b", "2")
	_, _, _ = c.Get(ctx, "a")
	_ = c.Set(ctx, "c", "3") // evicts a
	_, _ = c.Delete(ctx, "b")
	_ = c.SetTTL(ctx, "d", "4", time.Second)
	clk.Advance(2 * time.Second)
	_, _, _ = c.Get(ctx, "d") // lazy expiration

	if gets != 2 {
		t.Fatalf("expected 2 get hooks, got %d", gets)
	}
	if sets != 4 {
		t.Fatalf("expected 4 set hooks, got %d", sets)
	}
	if deletes[CauseEvicted] != 1 || deletes[CauseExplicit] != 1 || deletes[CauseExpired] != 1 {
		t.Fatalf("unexpected delete causes: %v", deletes)
	}
}

func TestCacheHookReentry(t *testing.T) {
	ctx := context.Background()
	var c *Cache[int]
	c, _ = New(WithDeleteHook(func(key string, value int, cause DeleteCause) {
		// Hooks run outside the guard, so re-entry must not deadlock.
		_ = c.Set(ctx, "tombstone:"+key, value)
	}))
	_ = c.Set(ctx, "a", 1)
	_, _ = c.Delete(ctx, "a")
	if !c.Has("tombstone:a") {
		t.Fatalf("expected delete hook re-entry to succeed")
	}
}

func TestCacheConfigure(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFIFO[int]()
	for i := 0; i < 10; i++ {
		_ = c.Set(ctx, fmt.Sprintf("k%d", i), i)
	}

	if err := c.Configure(WithMaxSize[int](-1)); !errors.Is(err, errs.ErrInvalidMaxSize) {
		t.Fatalf("expected ErrInvalidMaxSize, got %v", err)
	}
	if err := c.Configure(WithTTL[int](-time.Second)); !errors.Is(err, errs.ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
	if err := c.Configure(WithTimer[int](nil)); !errors.Is(err, errs.ErrNilTimer) {
		t.Fatalf("expected ErrNilTimer, got %v", err)
	}
	if err := c.Configure(WithStrategy[int](LRUStrategy)); !errors.Is(err, errs.ErrImmutableStrategy) {
		t.Fatalf("expected ErrImmutableStrategy, got %v", err)
	}

	// Shrinking the bound evicts down to it.
	if err := c.Configure(WithMaxSize[int](3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Size() != 3 {
		t.Fatalf("expected 3 entries after shrink, got %d", c.Size())
	}
	// Oldest keys go first under FIFO.
	if c.Has("k0") || !c.Has("k9") {
		t.Fatalf("unexpected survivors: %v", c.Keys())
	}
}

func TestCacheGetMany(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c, _ := New(WithTimer[int](clk.Now))
	_ = c.Set(ctx, "user:1", 1)
	_ = c.Set(ctx, "user:2", 2)
	_ = c.Set(ctx, "order:1", 3)
	_ = c.SetTTL(ctx, "user:3", 4, time.Second)
	clk.Advance(2 * time.Second)

	got, err := c.GetMany(ctx, SelectGlob("user:*"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got["user:1"] != 1 || got["user:2"] != 2 {
		t.Fatalf("unexpected glob result: %v", got)
	}

	got, _ = c.GetMany(ctx, SelectKeys("order:1", "missing"))
	if len(got) != 1 || got["order:1"] != 3 {
		t.Fatalf("unexpected keys result: %v", got)
	}

	got, _ = c.GetMany(ctx, func(key string) bool { return key == "user:2" })
	if len(got) != 1 || got["user:2"] != 2 {
		t.Fatalf("unexpected predicate result: %v", got)
	}
}

func TestCacheDeleteMany(t *testing.T) {
	ctx := context.Background()
	c, _ := New[int]()
	_ = c.SetMany(ctx, map[string]int{"a:1": 1, "a:2": 2, "b:1": 3})

	count, err := c.DeleteMany(ctx, SelectGlob("a:*"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 deletions, got %d", count)
	}
	if c.Size() != 1 || !c.Has("b:1") {
		t.Fatalf("unexpected survivors: %v", c.Keys())
	}
}

func TestCacheSetManyTTL(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c, _ := New(WithTimer[int](clk.Now))
	_ = c.SetManyTTL(ctx, map[string]int{"a": 1, "b": 2}, time.Second)
	clk.Advance(2 * time.Second)
	if c.Size() != 0 {
		t.Fatalf("expected all bulk entries to expire")
	}
}

func TestCacheStatsTracker(t *testing.T) {
	ctx := context.Background()
	tracker := stats.NewTracker()
	c, _ := New(WithMaxSize[int](1), WithStats[int](tracker))

	_ = c.Set(ctx, "a", 1)
	_, _, _ = c.Get(ctx, "a")
	_, _, _ = c.Get(ctx, "missing")
	_ = c.Set(ctx, "b", 2) // evicts a

	info := tracker.Info()
	if info.Hits != 1 || info.Misses != 1 || info.Evictions != 1 {
		t.Fatalf("unexpected tracker info: %+v", info)
	}

	own := c.Stats()
	if own.Hits != 1 || own.Misses != 1 || own.Evictions != 1 || own.Entries != 1 {
		t.Fatalf("unexpected cache stats: %+v", own)
	}
}

func TestCacheContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := New[int]()
	if _, _, err := c.Get(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if err := c.Set(ctx, "a", 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

// policyCount reports how many keys the policy currently tracks.
func policyCount[T any](c *Cache[T]) int {
	switch p := c.policy.(type) {
	case *fifoPolicy:
		return len(p.elems)
	case *lifoPolicy:
		return len(p.elems)
	case *lruPolicy:
		return len(p.elems)
	case *mruPolicy:
		return len(p.elems)
	case *lfuPolicy:
		return len(p.counts)
	case *rrPolicy:
		return len(p.keys)
	default:
		return -1
	}
}

func TestCacheConcurrentConsistency(t *testing.T) {
	for _, s := range []Strategy{FIFOStrategy, LRUStrategy, MRUStrategy, LFUStrategy, RRStrategy} {
		s := s
		t.Run(s.String(), func(t *testing.T) {
			ctx := context.Background()
			c, _ := New(WithStrategy[int](s), WithMaxSize[int](32))

			var wg sync.WaitGroup
			for w := 0; w < 8; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 500; i++ {
						key := fmt.Sprintf("k%d", (w+i)%64)
						switch i % 3 {
						case 0:
							_ = c.Set(ctx, key, i)
						case 1:
							_, _, _ = c.Get(ctx, key)
						default:
							_, _ = c.Delete(ctx, key)
						}
					}
				}(w)
			}
			wg.Wait()

			c.mu.Lock()
			defer c.mu.Unlock()
			if len(c.items) > 32 {
				t.Fatalf("size %d exceeds maxsize", len(c.items))
			}
			if n := policyCount(c); n != len(c.items) {
				t.Fatalf("entry map and eviction order diverged: %d entries, %d tracked", len(c.items), n)
			}
		})
	}
}
