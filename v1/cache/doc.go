// Package cache provides a thread-safe in-memory key/value cache with a
// bounded capacity, per-entry TTL expiration and a pluggable eviction policy
// (FIFO, LIFO, LRU, MRU, LFU, random replacement).
//
// Expiration is purely reactive: expired entries are removed lazily when an
// operation touches them, or swept before size-sensitive operations. No
// background goroutines are spawned.
package cache
