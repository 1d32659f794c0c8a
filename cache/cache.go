package cache

import (
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/zeebo/xxh3"
)

// Cache keeps rendered exports and query results for a bounded time.
type Cache[V any] struct {
	mu         sync.RWMutex
	entries    map[string]*Entry[V]
	ttl        time.Duration
	maxEntries int
	clock      clockwork.Clock
	done       chan struct{}
	closeOnce  sync.Once
}

type Entry[V any] struct {
	Value     V
	Timestamp time.Time
}

type Option func(*options)

type options struct {
	clock clockwork.Clock
}

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

func New[V any](ttl time.Duration, maxEntries int, opts ...Option) *Cache[V] {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[V]{
		entries:    make(map[string]*Entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      o.clock,
		done:       make(chan struct{}),
	}

	// Start cleanup goroutine
	go c.cleanup()

	return c
}

// Key derives a cache key from the kind of export and its raw input.
func Key(kind string, payload []byte) string {
	return kind + ":" + strconv.FormatUint(xxh3.Hash(payload), 16)
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.clock.Since(entry.Timestamp) > c.ttl {
		var zero V
		return zero, false
	}

	return entry.Value, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// At capacity the oldest entry goes first
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		var oldestKey string
		var oldestTime time.Time

		for k, v := range c.entries {
			if oldestTime.IsZero() || v.Timestamp.Before(oldestTime) {
				oldestKey = k
				oldestTime = v.Timestamp
			}
		}

		delete(c.entries, oldestKey)
	}

	c.entries[key] = &Entry[V]{
		Value:     value,
		Timestamp: c.clock.Now(),
	}
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[V]) cleanup() {
	interval := c.ttl / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.Chan():
			c.evictExpired()
		}
	}
}

func (c *Cache[V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for key, entry := range c.entries {
		if now.Sub(entry.Timestamp) > c.ttl {
			delete(c.entries, key)
		}
	}
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry[V])
}

// Close stops the cleanup goroutine.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
