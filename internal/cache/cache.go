// Package cache holds short-lived chat responses keyed by normalized query
// text. A Cache wraps a Store (in-process or Redis) and collapses identical
// concurrent lookups into one computation.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Entry is one cached response. Entries are never mutated; a newer Put
// replaces the whole entry.
type Entry struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists entries. Implementations apply their own TTL and size
// policy and must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, query string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// ComputeFunc produces the response for a query on a miss. Returning
// cacheable=false hands the response to the caller without storing it.
type ComputeFunc func(ctx context.Context) (response string, cacheable bool, err error)

var lookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "studyforge_chat_cache_total",
		Help: "Chat cache lookups by result (hit, miss, shared, error).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(lookups)
}

// Cache is safe for concurrent use.
type Cache struct {
	store  Store
	group  singleflight.Group
	logger *zap.Logger
}

// New wraps store. A nil logger is replaced with a no-op logger.
func New(store Store, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, logger: logger}
}

// Normalize returns the cache key for a query: trimmed and lowercased.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Get returns the cached response for query, if present and fresh.
func (c *Cache) Get(ctx context.Context, query string) (string, bool) {
	e, ok, err := c.store.Get(ctx, Normalize(query))
	if err != nil {
		lookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache read failed", zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	return e.Response, true
}

// GetOrCompute returns the cached response for query or runs fn to produce
// it. Concurrent callers with the same normalized query share one fn call.
// cached reports whether the response came from the store.
func (c *Cache) GetOrCompute(ctx context.Context, query string, fn ComputeFunc) (response string, cached bool, err error) {
	key := Normalize(query)
	if resp, ok := c.Get(ctx, key); ok {
		lookups.WithLabelValues("hit").Inc()
		return resp, true, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		// Another caller may have stored the entry while we waited.
		if resp, ok := c.Get(ctx, key); ok {
			return hit{resp}, nil
		}
		resp, cacheable, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if cacheable {
			if err := c.store.Put(ctx, Entry{Query: key, Response: resp, CreatedAt: time.Now()}); err != nil {
				c.logger.Warn("cache write failed", zap.Error(err))
			}
		}
		return resp, nil
	})
	if err != nil {
		return "", false, err
	}
	switch x := v.(type) {
	case hit:
		lookups.WithLabelValues("hit").Inc()
		return x.response, true, nil
	case string:
		if shared {
			lookups.WithLabelValues("shared").Inc()
		} else {
			lookups.WithLabelValues("miss").Inc()
		}
		return x, false, nil
	}
	return "", false, nil
}

// Len reports the number of stored entries, or -1 if the store fails.
func (c *Cache) Len(ctx context.Context) int {
	n, err := c.store.Len(ctx)
	if err != nil {
		c.logger.Warn("cache size failed", zap.Error(err))
		return -1
	}
	return n
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

type hit struct{ response string }
