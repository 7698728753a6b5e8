// Package cache provides a TTL + LRU cache for compiled query results.
//
// There is no package-level instance. A process constructs one Cache at
// start, hands it to the code that needs it and calls Close on exit.
package cache

import (
	"container/list"
	"path"
	"sync"
	"time"
)

// Defaults applied by New for zero Options fields.
const (
	DefaultMaxSize       = 1000
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Reason records why an entry left the cache.
type Reason string

const (
	ReasonExpired  Reason = "expired"
	ReasonCapacity Reason = "capacity"
	ReasonManual   Reason = "manual"
	ReasonClear    Reason = "clear"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options configures a Cache.
type Options[V any] struct {
	// MaxSize bounds the number of entries. Zero means DefaultMaxSize.
	MaxSize int

	// TTL is the entry lifetime measured from Set. Zero means DefaultTTL,
	// negative disables expiry.
	TTL time.Duration

	// SweepInterval is the period of the background expiry sweep. Zero
	// means DefaultSweepInterval, negative disables the sweeper.
	SweepInterval time.Duration

	// Clock defaults to the wall clock.
	Clock Clock

	// OnEvict is called after an entry is removed, outside the lock.
	OnEvict func(key string, value V, reason Reason)
}

// EntryInfo is a copy of an entry's metadata.
type EntryInfo struct {
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	MaxSize   int
	Evictions map[Reason]int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// TotalEvictions sums evictions over every reason.
func (s Stats) TotalEvictions() int64 {
	var n int64
	for _, v := range s.Evictions {
		n += v
	}
	return n
}

type entry[V any] struct {
	key            string
	value          V
	createdAt      time.Time
	lastAccessedAt time.Time
	accessCount    int64
}

type eviction[V any] struct {
	key    string
	value  V
	reason Reason
}

// Cache is safe for concurrent use. Every operation runs under one mutex.
type Cache[V any] struct {
	mu        sync.Mutex
	items     map[string]*list.Element
	order     *list.List // front is most recently used
	maxSize   int
	ttl       time.Duration
	clock     Clock
	onEvict   func(string, V, Reason)
	hits      int64
	misses    int64
	evictions map[Reason]int64

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a cache and starts its sweeper unless disabled.
func New[V any](opts Options[V]) *Cache[V] {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SweepInterval == 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}

	c := &Cache[V]{
		items:     make(map[string]*list.Element),
		order:     list.New(),
		maxSize:   opts.MaxSize,
		ttl:       opts.TTL,
		clock:     opts.Clock,
		onEvict:   opts.OnEvict,
		evictions: make(map[Reason]int64),
		stop:      make(chan struct{}),
	}

	if opts.SweepInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop(opts.SweepInterval)
	}
	return c
}

func (c *Cache[V]) sweepLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Get returns the value for key and marks it most recently used. An
// expired entry is evicted and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		c.mu.Unlock()
		return zero, false
	}

	e := el.Value.(*entry[V])
	now := c.clock.Now()
	if c.expired(e, now) {
		ev := c.remove(el, ReasonExpired)
		c.misses++
		c.mu.Unlock()
		c.notify(ev)
		return zero, false
	}

	c.order.MoveToFront(el)
	e.lastAccessedAt = now
	e.accessCount++
	c.hits++
	value := e.value
	c.mu.Unlock()
	return value, true
}

// Set stores value under key. Replacing an existing key resets its
// metadata and is not an eviction. At capacity the least recently used
// entry is evicted first.
func (c *Cache[V]) Set(key string, value V) {
	now := c.clock.Now()
	var evicted []eviction[V]

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		el.Value = &entry[V]{key: key, value: value, createdAt: now, lastAccessedAt: now}
		c.order.MoveToFront(el)
		c.mu.Unlock()
		return
	}

	for c.order.Len() >= c.maxSize {
		evicted = append(evicted, c.remove(c.order.Back(), ReasonCapacity))
	}
	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value, createdAt: now, lastAccessedAt: now})
	c.mu.Unlock()

	c.notify(evicted...)
}

// Delete removes key. Reports whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	ev := c.remove(el, ReasonManual)
	c.mu.Unlock()

	c.notify(ev)
	return true
}

// Has reports whether a live entry exists without touching recency.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	return ok && !c.expired(el.Value.(*entry[V]), c.clock.Now())
}

// Peek returns a copy of an entry's metadata without touching recency.
func (c *Cache[V]) Peek(key string) (EntryInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return EntryInfo{}, false
	}
	e := el.Value.(*entry[V])
	return EntryInfo{
		CreatedAt:      e.createdAt,
		LastAccessedAt: e.lastAccessedAt,
		AccessCount:    e.accessCount,
	}, true
}

// Len returns the number of entries, expired ones included until swept.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns keys from most to least recently used.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// Clear evicts every entry with reason clear.
func (c *Cache[V]) Clear() int {
	c.mu.Lock()
	evicted := c.removeIf(ReasonClear, func(*entry[V]) bool { return true })
	c.mu.Unlock()

	c.notify(evicted...)
	return len(evicted)
}

// InvalidatePattern evicts keys matching a path.Match glob such as
// "users:*". Returns the number removed. A malformed pattern removes
// nothing.
func (c *Cache[V]) InvalidatePattern(pattern string) int {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0
	}

	c.mu.Lock()
	evicted := c.removeIf(ReasonManual, func(e *entry[V]) bool {
		ok, _ := path.Match(pattern, e.key)
		return ok
	})
	c.mu.Unlock()

	c.notify(evicted...)
	return len(evicted)
}

// InvalidateOlderThan evicts entries created more than age ago.
func (c *Cache[V]) InvalidateOlderThan(age time.Duration) int {
	cutoff := c.clock.Now().Add(-age)

	c.mu.Lock()
	evicted := c.removeIf(ReasonManual, func(e *entry[V]) bool {
		return e.createdAt.Before(cutoff)
	})
	c.mu.Unlock()

	c.notify(evicted...)
	return len(evicted)
}

// Sweep evicts every expired entry. The background sweeper calls it
// periodically; tests call it directly.
func (c *Cache[V]) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	evicted := c.removeIf(ReasonExpired, func(e *entry[V]) bool {
		return c.expired(e, now)
	})
	c.mu.Unlock()

	c.notify(evicted...)
	return len(evicted)
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev := make(map[Reason]int64, len(c.evictions))
	for r, n := range c.evictions {
		ev[r] = n
	}
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Size:      c.order.Len(),
		MaxSize:   c.maxSize,
		Evictions: ev,
	}
}

// Reset drops every entry and zeroes the counters without running
// OnEvict.
func (c *Cache[V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.hits, c.misses = 0, 0
	c.evictions = make(map[Reason]int64)
}

// Close stops the sweeper and waits for it to exit. Safe to call more
// than once. The cache stays usable without background sweeping.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	c.wg.Wait()
}

func (c *Cache[V]) expired(e *entry[V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.createdAt) > c.ttl
}

// remove must be called with mu held.
func (c *Cache[V]) remove(el *list.Element, reason Reason) eviction[V] {
	e := c.order.Remove(el).(*entry[V])
	delete(c.items, e.key)
	c.evictions[reason]++
	return eviction[V]{key: e.key, value: e.value, reason: reason}
}

// removeIf must be called with mu held.
func (c *Cache[V]) removeIf(reason Reason, match func(*entry[V]) bool) []eviction[V] {
	var evicted []eviction[V]
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if match(el.Value.(*entry[V])) {
			evicted = append(evicted, c.remove(el, reason))
		}
		el = prev
	}
	return evicted
}

func (c *Cache[V]) notify(evicted ...eviction[V]) {
	if c.onEvict == nil {
		return
	}
	for _, ev := range evicted {
		c.onEvict(ev.key, ev.value, ev.reason)
	}
}
