package gitobj

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheCapacity is the default capacity of each of ValueCache's two
// tables, per spec.md §4.B. Packed's LRUs have their own defaults
// (defaultIndexLRUCapacity, defaultKeysLRUCapacity in packed.go).
const defaultCacheCapacity = 512

// ValueCache is two independent, bounded LRUs: decoded Values keyed by
// hash, and their inflated-but-undecoded byte form, also keyed by hash.
// Store consults it before touching Loose or Packed; spec.md property P5
// requires it be authoritative while an entry is present, even against a
// disk object that would decode to something different.
//
// spec.md §4.B calls for plain LRU eviction, not frequency-aware
// replacement, so this uses github.com/hashicorp/golang-lru/v2 (the exact
// package the teacher already imports for its delta window in
// deltawindow.go) rather than the ARC variant the teacher's store.go uses
// for its object cache — ARC's extra frequency tracking isn't part of the
// contract this component specifies.
type ValueCache struct {
	mu        sync.Mutex
	decoded   *lru.Cache[Hash, Value]
	inflated  *lru.Cache[Hash, []byte]
	capacity  int
}

// NewValueCache constructs a ValueCache with the given capacity per table.
func NewValueCache(capacity int) *ValueCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	decoded, _ := lru.New[Hash, Value](capacity)
	inflated, _ := lru.New[Hash, []byte](capacity)
	return &ValueCache{decoded: decoded, inflated: inflated, capacity: capacity}
}

// Find returns the cached decoded Value for h, if any.
func (c *ValueCache) Find(h Hash) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decoded.Get(h)
}

// FindInflated returns the cached inflated bytes for h, if any.
func (c *ValueCache) FindInflated(h Hash) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflated.Get(h)
}

// Insert caches the decoded Value for h.
func (c *ValueCache) Insert(h Hash, v Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoded.Add(h, v)
}

// InsertInflated caches the inflated bytes for h.
func (c *ValueCache) InsertInflated(h Hash, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflated.Add(h, data)
}

// Clear discards every cached entry in both tables.
func (c *ValueCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoded.Purge()
	c.inflated.Purge()
}

// Resize changes the capacity of both tables, discarding their existing
// entries (spec.md §4.B: "Capacity change discards existing entries").
func (c *ValueCache) Resize(newCapacity int) {
	if newCapacity <= 0 {
		newCapacity = defaultCacheCapacity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	decoded, _ := lru.New[Hash, Value](newCapacity)
	inflated, _ := lru.New[Hash, []byte](newCapacity)
	c.decoded = decoded
	c.inflated = inflated
	c.capacity = newCapacity
}
