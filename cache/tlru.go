package cache

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/goliatone/go-census/internal/errs"
)

// EvictReason tells an eviction callback why an entry left the cache.
type EvictReason int

const (
	// EvictCapacity means the entry was the least recently used one when the bound was exceeded.
	EvictCapacity EvictReason = iota
	// EvictExpired means the entry outlived the time-to-use window.
	EvictExpired
	// EvictResize means the entry was dropped while shrinking the cache.
	EvictResize
)

func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictExpired:
		return "expired"
	case EvictResize:
		return "resize"
	default:
		return fmt.Sprintf("EvictReason(%d)", int(r))
	}
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Name        string
	Len         int
	Size        int
	TTU         time.Duration
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
}

// Option customises a TLRU at construction time.
type Option func(*options)

type options struct {
	now     func() time.Time
	onEvict any
}

// WithClock replaces time.Now as the cache's time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithOnEvict registers the eviction callback at construction time. See OnEvict.
func WithOnEvict[K comparable, V any](fn func(K, V, EvictReason)) Option {
	return func(o *options) {
		if fn != nil {
			o.onEvict = fn
		}
	}
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

type eviction[K comparable, V any] struct {
	key    K
	value  V
	reason EvictReason
}

// TLRU is a size bounded least-recently-used cache whose entries additionally
// expire once they are older than the time-to-use window.
//
// A size of zero yields a disabled cache: Add is a no-op and Get always misses.
// A ttu of zero disables age based expiry.
type TLRU[K comparable, V any] struct {
	mu      sync.Mutex
	name    string
	size    int
	ttu     time.Duration
	now     func() time.Time
	onEvict func(K, V, EvictReason)

	// nil while the cache is disabled
	lru *simplelru.LRU[K, entry[V]]

	// reason is attached to entries the lru drops during the current operation
	reason  EvictReason
	dropped []eviction[K, V]

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
}

// New creates a TLRU cache. It fails with a ConfigurationError when size or ttu is negative.
func New[K comparable, V any](name string, size int, ttu time.Duration, opts ...Option) (*TLRU[K, V], error) {
	if size < 0 {
		return nil, errs.Configuration("size", fmt.Sprintf("%d is not a valid cache size", size))
	}
	if ttu < 0 {
		return nil, errs.Configuration("ttu", fmt.Sprintf("%s is not a valid time-to-use", ttu))
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &TLRU[K, V]{
		name: name,
		size: size,
		ttu:  ttu,
		now:  o.now,
	}
	if fn, ok := o.onEvict.(func(K, V, EvictReason)); ok {
		c.onEvict = fn
	}
	if size > 0 {
		if err := c.init(size); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *TLRU[K, V]) init(size int) error {
	l, err := simplelru.NewLRU[K, entry[V]](size, func(key K, ent entry[V]) {
		c.dropped = append(c.dropped, eviction[K, V]{key: key, value: ent.value, reason: c.reason})
	})
	if err != nil {
		return errs.Configuration("size", err.Error())
	}
	c.lru = l
	return nil
}

// OnEvict registers a callback invoked whenever the cache drops an entry on
// its own (capacity, expiry or resize). Explicit Remove and Clear calls do
// not trigger it. Callbacks run after the cache lock is released, so they
// may call back into the cache.
func (c *TLRU[K, V]) OnEvict(fn func(K, V, EvictReason)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Name returns the label the cache was created with.
func (c *TLRU[K, V]) Name() string {
	return c.name
}

// Add inserts or overwrites key and marks it as most recently used.
func (c *TLRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	if c.lru == nil {
		c.mu.Unlock()
		return
	}
	c.reason = EvictCapacity
	c.lru.Add(key, entry[V]{value: value, insertedAt: c.now()})
	evicted, fn := c.drain()
	c.mu.Unlock()

	notify(fn, evicted)
}

// Get returns the value stored under key if it is present and has not
// outlived the time-to-use window. A hit refreshes the entry's recency, an
// expired entry is removed.
func (c *TLRU[K, V]) Get(key K) (V, bool) {
	var zero V

	c.mu.Lock()
	if c.lru == nil {
		c.misses++
		c.mu.Unlock()
		return zero, false
	}

	ent, ok := c.lru.Peek(key)
	if !ok {
		c.misses++
		c.mu.Unlock()
		return zero, false
	}
	if c.expired(ent, c.now()) {
		c.reason = EvictExpired
		c.lru.Remove(key)
		c.misses++
		evicted, fn := c.drain()
		c.mu.Unlock()

		notify(fn, evicted)
		return zero, false
	}

	c.lru.Get(key)
	c.hits++
	c.mu.Unlock()
	return ent.value, true
}

// Contains reports whether key is stored and not expired, without touching
// recency or removing anything.
func (c *TLRU[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru == nil {
		return false
	}
	ent, ok := c.lru.Peek(key)
	return ok && !c.expired(ent, c.now())
}

// Remove deletes key unconditionally.
func (c *TLRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru != nil {
		c.lru.Remove(key)
		c.dropped = c.dropped[:0]
	}
}

// Clear empties the cache.
func (c *TLRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru != nil {
		c.lru.Purge()
		c.dropped = c.dropped[:0]
	}
}

// Resize changes the size bound, evicting least recently used entries until
// the cache fits. A size below one is rejected and leaves the cache untouched.
func (c *TLRU[K, V]) Resize(size int) error {
	if size < 1 {
		return errs.Configuration("size", fmt.Sprintf("%d is not a valid cache size", size))
	}

	c.mu.Lock()
	c.size = size
	if c.lru == nil {
		err := c.init(size)
		c.mu.Unlock()
		return err
	}
	c.reason = EvictResize
	c.lru.Resize(size)
	evicted, fn := c.drain()
	c.mu.Unlock()

	notify(fn, evicted)
	return nil
}

// SetTTU updates the expiry window. Existing entries are judged against the
// new window the next time they are read; nothing is evicted eagerly.
func (c *TLRU[K, V]) SetTTU(ttu time.Duration) error {
	if ttu < 0 {
		return errs.Configuration("ttu", fmt.Sprintf("%s is not a valid time-to-use", ttu))
	}

	c.mu.Lock()
	c.ttu = ttu
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *TLRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.len()
}

// Size returns the current size bound.
func (c *TLRU[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// TTU returns the current time-to-use window.
func (c *TLRU[K, V]) TTU() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttu
}

// Keys returns the stored keys ordered from most to least recently used.
func (c *TLRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru == nil {
		return []K{}
	}
	keys := c.lru.Keys()
	slices.Reverse(keys)
	return keys
}

// Stats returns a snapshot of the cache counters.
func (c *TLRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Name:        c.name,
		Len:         c.len(),
		Size:        c.size,
		TTU:         c.ttu,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}

func (c *TLRU[K, V]) len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *TLRU[K, V]) expired(ent entry[V], now time.Time) bool {
	return c.ttu > 0 && now.Sub(ent.insertedAt) > c.ttu
}

// drain counts and hands over the entries dropped by the current operation.
// It must be called with c.mu held.
func (c *TLRU[K, V]) drain() ([]eviction[K, V], func(K, V, EvictReason)) {
	if len(c.dropped) == 0 {
		return nil, nil
	}
	evicted := c.dropped
	c.dropped = nil
	for _, ev := range evicted {
		if ev.reason == EvictExpired {
			c.expirations++
		} else {
			c.evictions++
		}
	}
	return evicted, c.onEvict
}

func notify[K comparable, V any](fn func(K, V, EvictReason), evicted []eviction[K, V]) {
	if fn == nil {
		return
	}
	for _, ev := range evicted {
		fn(ev.key, ev.value, ev.reason)
	}
}
