// Package response is the content-addressed cache in front of every remote
// inference call. Failures never reach the caller: lookups degrade to a miss
// and stores to a no-op, both logged.
package response

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"bizdiag/internal/kv"
	"bizdiag/internal/logging"
)

type MetricsSnapshot struct {
	Hits        uint64
	Misses      uint64
	Stores      uint64
	StoreErrors uint64
	LookupErrs  uint64
}

type Cache struct {
	store kv.Store
	log   *zap.Logger
	now   func() time.Time

	hits        atomic.Uint64
	misses      atomic.Uint64
	stores      atomic.Uint64
	storeErrors atomic.Uint64
	lookupErrs  atomic.Uint64
}

func New(store kv.Store, log *zap.Logger) *Cache {
	return &Cache{store: store, log: logging.OrNop(log), now: time.Now}
}

// Lookup decodes a previously stored result for (operation, input) into out
// and reports whether one was found.
func (c *Cache) Lookup(ctx context.Context, operation string, input any, out any) bool {
	if c == nil || c.store == nil {
		return false
	}
	key, err := Key(operation, input)
	if err != nil {
		c.lookupErrs.Add(1)
		c.log.Warn("cache key", zap.String("op", operation), zap.Error(err))
		return false
	}
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.lookupErrs.Add(1)
		c.log.Error("cache read", zap.String("op", operation), zap.Error(err))
		return false
	}
	if !ok {
		c.misses.Add(1)
		c.log.Debug("cache miss", zap.String("op", operation))
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.lookupErrs.Add(1)
		c.log.Error("cache decode", zap.String("op", operation), zap.Error(err))
		return false
	}
	c.hits.Add(1)
	c.log.Debug("cache hit", zap.String("op", operation))
	return true
}

// Store persists value under the canonical key of (operation, input). When
// the input cannot be canonicalized the value is written under a one-shot
// time-derived key that no later lookup will find.
func (c *Cache) Store(ctx context.Context, operation string, input any, value any) {
	if c == nil || c.store == nil {
		return
	}
	key, err := Key(operation, input)
	if err != nil {
		c.log.Warn("cache key, using fallback", zap.String("op", operation), zap.Error(err))
		key = fallbackKey(operation, c.now())
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.storeErrors.Add(1)
		c.log.Error("cache encode", zap.String("op", operation), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, raw); err != nil {
		c.storeErrors.Add(1)
		c.log.Error("cache write", zap.String("op", operation), zap.Error(err))
		return
	}
	c.stores.Add(1)
}

// Clear removes every response cache entry from the backing store.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	if c == nil || c.store == nil {
		return 0, nil
	}
	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

func (c *Cache) Metrics() MetricsSnapshot {
	if c == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Stores:      c.stores.Load(),
		StoreErrors: c.storeErrors.Load(),
		LookupErrs:  c.lookupErrs.Load(),
	}
}
