package cache

// Strategy selects the eviction policy used by a cache.
type Strategy int

const (
	// FIFOStrategy evicts the oldest inserted key first.
	FIFOStrategy Strategy = iota
	// LIFOStrategy evicts the most recently inserted key first.
	LIFOStrategy
	// LRUStrategy evicts the least recently accessed key first.
	LRUStrategy
	// MRUStrategy evicts the most recently accessed key first.
	MRUStrategy
	// LFUStrategy evicts the least frequently accessed key first.
	LFUStrategy
	// RRStrategy evicts a uniformly random key.
	RRStrategy
)

func (s Strategy) String() string {
	switch s {
	case FIFOStrategy:
		return "fifo"
	case LIFOStrategy:
		return "lifo"
	case LRUStrategy:
		return "lru"
	case MRUStrategy:
		return "mru"
	case LFUStrategy:
		return "lfu"
	case RRStrategy:
		return "rr"
	default:
		return "unknown"
	}
}

// policy maintains the eviction order for the cache. The entry map and the
// policy bookkeeping must stay consistent: every live key appears in both
// exactly once. All methods are called with the cache guard held.
type policy interface {
	// onInsert records a newly inserted key. Called once per live key.
	onInsert(key string)
	// onAccess records a read of a live key.
	onAccess(key string)
	// onRemove drops bookkeeping for a deleted, expired or evicted key.
	onRemove(key string)
	// victim returns the next eviction candidate without mutating the
	// order. The caller removes it.
	victim() (string, bool)
	// reset drops all bookkeeping.
	reset()
}

func newPolicy(s Strategy) policy {
	switch s {
	case LIFOStrategy:
		return newLIFO()
	case LRUStrategy:
		return newLRU()
	case MRUStrategy:
		return newMRU()
	case LFUStrategy:
		return newLFU()
	case RRStrategy:
		return newRR()
	default:
		return newFIFO()
	}
}
