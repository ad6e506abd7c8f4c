package services

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// CacheClass groups cache entries that share a TTL.
type CacheClass string

// Cache classes.
const (
	CacheClassFrameworkList CacheClass = "framework_list"
	CacheClassDocument      CacheClass = "document"
	CacheClassSearch        CacheClass = "search"
	CacheClassCorrelation   CacheClass = "correlation"
	CacheClassGaps          CacheClass = "gaps"
)

// CacheKey identifies a cached value.
type CacheKey struct {
	Class    CacheClass
	Source   string
	Resource string
	Query    string
}

// String renders the key in its canonical map form.
func (k CacheKey) String() string {
	return string(k.Class) + "|" + k.Source + "|" + k.Resource + "|" + k.Query
}

// LoaderFunc produces the value for a cache miss.
type LoaderFunc func(ctx context.Context) (any, error)

// Sizer is implemented by values that can estimate their own size.
type Sizer interface {
	SizeEstimate() int
}

// cacheEntry is owned by Cache; callers only ever see entry.value.
type cacheEntry struct {
	key        string
	class      CacheClass
	value      any
	insertedAt time.Time
	lastAccess time.Time
	size       int
	elem       *list.Element
}

// inflightLoad marks a load whose result may still be stored.
type inflightLoad struct {
	token uint64
	class CacheClass
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheClock overrides the time source.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithCacheTelemetry sets the telemetry sink.
func WithCacheTelemetry(t driven.Telemetry) CacheOption {
	return func(c *Cache) {
		if t != nil {
			c.telemetry = t
		}
	}
}

// WithClassTTL overrides the TTL of one class.
func WithClassTTL(class CacheClass, ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl[class] = ttl }
}

// Cache is a TTL+LRU cache that collapses concurrent loads of the same key
// into a single loader invocation.
//
// Thread Safety:
//
//	Cache is safe for concurrent use. The entry map and LRU list share one
//	mutex that is never held while a loader runs.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	inflight map[string]inflightLoad
	lru      *list.List
	flight   singleflight.Group
	seq      uint64

	capacity   int
	ttl        map[CacheClass]time.Duration
	serveStale bool
	now        func() time.Time
	telemetry  driven.Telemetry

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	coalesced atomic.Int64
}

// NewCache creates a cache from settings.
func NewCache(cfg domain.CacheSettings, opts ...CacheOption) *Cache {
	c := &Cache{
		entries:  make(map[string]*cacheEntry),
		inflight: make(map[string]inflightLoad),
		lru:      list.New(),
		capacity: cfg.Capacity,
		ttl: map[CacheClass]time.Duration{
			CacheClassFrameworkList: cfg.FrameworkListTTL.Std(),
			CacheClassDocument:      cfg.DocumentTTL.Std(),
			CacheClassSearch:        cfg.SearchTTL.Std(),
			CacheClassCorrelation:   cfg.SearchTTL.Std(),
			CacheClassGaps:          cfg.SearchTTL.Std(),
		},
		serveStale: cfg.ServeStale,
		now:        time.Now,
		telemetry:  driven.NopTelemetry{},
	}
	if c.capacity <= 0 {
		c.capacity = domain.DefaultSettings().Cache.Capacity
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrLoad returns the cached value for key, calling load on a miss.
//
// Concurrent callers for the same missing key share one load and receive the
// same value or error. A caller whose context ends while waiting is released
// with domain.ErrCancelled; the load keeps running for the remaining waiters.
// Expired entries are reloaded on access. When the reload fails with a
// non-permanent error and stale serving is enabled, the expired value is returned.
func (c *Cache) GetOrLoad(ctx context.Context, key CacheKey, load LoaderFunc) (any, error) {
	k := key.String()
	now := c.now()

	c.mu.Lock()
	var (
		stale     any
		haveStale bool
	)
	if e, ok := c.entries[k]; ok {
		e.lastAccess = now
		c.lru.MoveToFront(e.elem)
		if !c.expired(e, now) {
			v := e.value
			c.mu.Unlock()
			c.hits.Add(1)
			c.telemetry.Record(driven.EventCacheHit, map[string]any{"class": string(key.Class)})
			return v, nil
		}
		stale, haveStale = e.value, true
	}
	c.mu.Unlock()

	c.misses.Add(1)
	c.telemetry.Record(driven.EventCacheMiss, map[string]any{"class": string(key.Class)})

	// The load must outlive any single waiter.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(k, func() (any, error) {
		return c.runLoad(loadCtx, key, k, load)
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.coalesced.Add(1)
		}
		if res.Err != nil {
			if haveStale && c.serveStale && !domain.IsPermanent(res.Err) {
				c.telemetry.Record(driven.EventCacheStaleServed, map[string]any{"class": string(key.Class)})
				return stale, nil
			}
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for %s: %v", domain.ErrCancelled, key.Class, ctx.Err())
	}
}

// runLoad executes the loader and stores the result unless the key was
// invalidated while the load was running. A fresh entry stored by a flight
// that finished after the caller's miss is returned without loading again.
func (c *Cache) runLoad(ctx context.Context, key CacheKey, k string, load LoaderFunc) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[k]; ok && !c.expired(e, c.now()) {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	c.seq++
	token := c.seq
	c.inflight[k] = inflightLoad{token: token, class: key.Class}
	c.mu.Unlock()

	v, err := load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.inflight[k]
	if ok && cur.token == token {
		delete(c.inflight, k)
		if err == nil {
			c.storeLocked(k, key.Class, v)
		}
	}
	return v, err
}

// storeLocked inserts or replaces an entry and evicts beyond capacity.
// Caller must hold c.mu.
func (c *Cache) storeLocked(k string, class CacheClass, v any) {
	now := c.now()
	size := 1
	if s, ok := v.(Sizer); ok {
		size = s.SizeEstimate()
	}

	if e, ok := c.entries[k]; ok {
		e.value = v
		e.insertedAt = now
		e.lastAccess = now
		e.size = size
		c.lru.MoveToFront(e.elem)
		return
	}

	e := &cacheEntry{
		key:        k,
		class:      class,
		value:      v,
		insertedAt: now,
		lastAccess: now,
		size:       size,
	}
	e.elem = c.lru.PushFront(e)
	c.entries[k] = e

	for c.lru.Len() > c.capacity {
		back := c.lru.Back()
		victim, _ := back.Value.(*cacheEntry)
		c.lru.Remove(back)
		delete(c.entries, victim.key)
		c.evictions.Add(1)
		c.telemetry.Record(driven.EventCacheEvict, map[string]any{"class": string(victim.class)})
	}
}

func (c *Cache) expired(e *cacheEntry, now time.Time) bool {
	ttl, ok := c.ttl[e.class]
	if !ok || ttl <= 0 {
		return false
	}
	return now.Sub(e.insertedAt) >= ttl
}

// Invalidate drops one key. In-flight loads for it complete for their
// waiters but are not stored.
func (c *Cache) Invalidate(key CacheKey) {
	k := key.String()
	c.mu.Lock()
	c.removeLocked(k)
	delete(c.inflight, k)
	c.mu.Unlock()
	c.flight.Forget(k)
}

// InvalidateClass drops every key of a class.
func (c *Cache) InvalidateClass(class CacheClass) {
	var forget []string
	c.mu.Lock()
	for k, e := range c.entries {
		if e.class == class {
			c.removeLocked(k)
			forget = append(forget, k)
		}
	}
	for k, in := range c.inflight {
		if in.class == class {
			delete(c.inflight, k)
			forget = append(forget, k)
		}
	}
	c.mu.Unlock()
	for _, k := range forget {
		c.flight.Forget(k)
	}
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	forget := make([]string, 0, len(c.entries)+len(c.inflight))
	for k := range c.entries {
		forget = append(forget, k)
	}
	for k := range c.inflight {
		forget = append(forget, k)
	}
	c.entries = make(map[string]*cacheEntry)
	c.inflight = make(map[string]inflightLoad)
	c.lru.Init()
	c.mu.Unlock()
	for _, k := range forget {
		c.flight.Forget(k)
	}
}

func (c *Cache) removeLocked(k string) {
	if e, ok := c.entries[k]; ok {
		c.lru.Remove(e.elem)
		delete(c.entries, k)
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() domain.CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	var size int64
	for _, e := range c.entries {
		size += int64(e.size)
	}
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}

	return domain.CacheStats{
		Hits:         hits,
		Misses:       misses,
		HitRate:      rate,
		Entries:      entries,
		Evictions:    c.evictions.Load(),
		Coalesced:    c.coalesced.Load(),
		SizeEstimate: size,
	}
}

// LoadAs is a typed wrapper over Cache.GetOrLoad.
func LoadAs[T any](ctx context.Context, c *Cache, key CacheKey, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: unexpected value %T for %s", v, key)
	}
	return t, nil
}
