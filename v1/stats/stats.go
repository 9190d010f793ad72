// Package stats provides hit/miss/eviction accounting for caches.
package stats

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is an immutable snapshot of cache statistics.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   uint64
}

// Accesses returns the total number of reads recorded.
func (s Stats) Accesses() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns the fraction of reads that were hits.
// It returns 1.0 when no reads have been recorded.
func (s Stats) HitRate() float64 {
	if s.Accesses() == 0 {
		return 1.0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

// MissRate returns the fraction of reads that were misses.
// It returns 0.0 when no reads have been recorded.
func (s Stats) MissRate() float64 {
	if s.Accesses() == 0 {
		return 0.0
	}
	return float64(s.Misses) / float64(s.Accesses())
}

// EvictionRate returns the number of evictions per read.
// It returns 1.0 when no reads have been recorded.
func (s Stats) EvictionRate() float64 {
	if s.Accesses() == 0 {
		return 1.0
	}
	return float64(s.Evictions) / float64(s.Accesses())
}

func (s Stats) String() string {
	return fmt.Sprintf("Stats(hits=%d, misses=%d, evictions=%d, entries=%d, hit_rate=%g)",
		s.Hits, s.Misses, s.Evictions, s.Entries, s.HitRate())
}

// Tracker accumulates cache statistics. It can be shared between caches and
// temporarily paused or disabled; a disabled tracker discards its counts.
type Tracker struct {
	mu      sync.Mutex
	enabled bool
	paused  bool

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	entries   atomic.Uint64
}

// NewTracker returns an enabled Tracker.
func NewTracker() *Tracker {
	return &Tracker{enabled: true}
}

func (t *Tracker) recording() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && !t.paused
}

// Hit records n cache hits.
func (t *Tracker) Hit(n uint64) {
	if t.recording() {
		t.hits.Add(n)
	}
}

// Miss records n cache misses.
func (t *Tracker) Miss(n uint64) {
	if t.recording() {
		t.misses.Add(n)
	}
}

// Eviction records n evicted entries.
func (t *Tracker) Eviction(n uint64) {
	if t.recording() {
		t.evictions.Add(n)
	}
}

// SetEntries records the current number of live entries.
func (t *Tracker) SetEntries(n uint64) {
	if t.recording() {
		t.entries.Store(n)
	}
}

// Enable turns recording on.
func (t *Tracker) Enable() {
	t.mu.Lock()
	t.enabled = true
	t.mu.Unlock()
}

// Disable resets all counts and turns recording off.
func (t *Tracker) Disable() {
	t.Reset()
	t.mu.Lock()
	t.enabled = false
	t.mu.Unlock()
}

// IsEnabled reports whether recording is on.
func (t *Tracker) IsEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Pause suspends recording without resetting counts.
func (t *Tracker) Pause() {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()
}

// Resume continues recording after a Pause.
func (t *Tracker) Resume() {
	t.mu.Lock()
	t.paused = false
	t.mu.Unlock()
}

// IsPaused reports whether recording is suspended.
func (t *Tracker) IsPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Reset clears all counts.
func (t *Tracker) Reset() {
	t.hits.Store(0)
	t.misses.Store(0)
	t.evictions.Store(0)
	t.entries.Store(0)
}

// Info returns a snapshot of the current counts.
func (t *Tracker) Info() Stats {
	return Stats{
		Hits:      t.hits.Load(),
		Misses:    t.misses.Load(),
		Evictions: t.evictions.Load(),
		Entries:   t.entries.Load(),
	}
}

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Register exposes the tracker's counts on the provided Prometheus
// registerer. The name is used as a constant cache label so multiple
// trackers can share one registry.
func Register(reg prometheus.Registerer, name string, t *Tracker) {
	labels := prometheus.Labels{"cache": name}
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "hoard_hits_total",
			Help:        "Total number of cache hits",
			ConstLabels: labels,
		}, func() float64 { return float64(t.hits.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "hoard_misses_total",
			Help:        "Total number of cache misses",
			ConstLabels: labels,
		}, func() float64 { return float64(t.misses.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "hoard_evictions_total",
			Help:        "Total number of cache evictions",
			ConstLabels: labels,
		}, func() float64 { return float64(t.evictions.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "hoard_entries",
			Help:        "Current number of live cache entries",
			ConstLabels: labels,
		}, func() float64 { return float64(t.entries.Load()) }),
	)
}
