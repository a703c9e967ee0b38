// Package reqcache deduplicates and briefly reuses keyed reads.
//
// At most one fetch per key is in flight. Completed values are reused until
// they are older than the TTL, and every completed fetch is fanned out to the
// key's subscribers. Errors are never cached.
package reqcache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"pumpcore/internal/observability"
)

// Fetch loads the value for a key.
type Fetch func(ctx context.Context) (any, error)

// Options configures Cache.
type Options struct {
	TTL    time.Duration // 0 disables reuse after completion
	Logger *zap.Logger
	Now    func() time.Time
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
	subs    map[string]map[uint64]func(any)
	nextSub uint64
	epoch   uint64 // bumped by every invalidation
}

// New creates a Cache.
func New(opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		ttl:     opts.TTL,
		now:     opts.Now,
		logger:  opts.Logger.Named("reqcache"),
		entries: make(map[string]entry),
		subs:    make(map[string]map[uint64]func(any)),
	}
}

// Do returns a fresh cached value for key, joins the in-flight fetch, or
// starts one. The fetch runs detached from ctx: a caller that stops waiting
// does not cancel it, and its result still populates the cache.
func (c *Cache) Do(ctx context.Context, key string, fetch Fetch) (any, error) {
	if v, ok := c.fresh(key); ok {
		observability.RecordCacheLookup("hit")
		return v, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		epoch := c.currentEpoch()
		v, err := fetch(detached)
		if err != nil {
			return nil, err
		}
		c.store(key, v, epoch)
		c.publish(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			observability.RecordCacheLookup("shared")
		} else {
			observability.RecordCacheLookup("miss")
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the cached value for key if it is still fresh.
func (c *Cache) Get(key string) (any, bool) {
	return c.fresh(key)
}

// Subscribe registers fn to receive every value fetched for key.
// The returned func removes the subscription.
func (c *Cache) Subscribe(key string, fn func(any)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	id := c.nextSub
	if c.subs[key] == nil {
		c.subs[key] = make(map[uint64]func(any))
	}
	c.subs[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs[key], id)
			if len(c.subs[key]) == 0 {
				delete(c.subs, key)
			}
		})
	}
}

// Subscribers returns the number of subscriptions for key.
func (c *Cache) Subscribers(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs[key])
}

// Invalidate drops the cached value for key. A fetch already in flight
// completes without being stored, and later callers start a new one.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.epoch++
	c.mu.Unlock()
	c.group.Forget(key)
}

// InvalidatePrefix drops every cached value whose key starts with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	var keys []string
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.epoch++
	c.mu.Unlock()

	for _, key := range keys {
		c.group.Forget(key)
	}
	c.logger.Debug("invalidated", zap.String("prefix", prefix), zap.Int("keys", len(keys)))
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) fresh(key string) (any, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// store records a value and prunes expired entries. A value fetched before
// an invalidation is not stored.
func (c *Cache) store(key string, v any, epoch uint64) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return
	}

	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.fetchedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry{value: v, fetchedAt: now}
}

func (c *Cache) publish(key string, v any) {
	c.mu.Lock()
	fns := make([]func(any), 0, len(c.subs[key]))
	for _, fn := range c.subs[key] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
