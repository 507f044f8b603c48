package cache

import (
	"context"
	"sync"
	"time"
)

// Memory defaults.
const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 100
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store with a fixed TTL and a size cap. When the
// cap is exceeded the oldest entry is evicted.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	max     int
	now     func() time.Time
}

// NewMemory returns a Memory store. Non-positive arguments select the
// defaults.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		entries: make(map[string]Entry),
		ttl:     ttl,
		max:     maxEntries,
		now:     time.Now,
	}
}

// Get implements Store. Expired entries are removed on read.
func (m *Memory) Get(_ context.Context, query string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[query]
	if !ok {
		return Entry{}, false, nil
	}
	if m.now().Sub(e.CreatedAt) >= m.ttl {
		delete(m.entries, query)
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put implements Store. CreatedAt is stamped with the store clock.
func (m *Memory) Put(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.CreatedAt = m.now()
	m.entries[e.Query] = e
	m.evictLocked()
	return nil
}

// Len implements Store.
func (m *Memory) Len(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// Clear implements Store.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
	return nil
}

func (m *Memory) evictLocked() {
	now := m.now()
	for k, e := range m.entries {
		if now.Sub(e.CreatedAt) >= m.ttl {
			delete(m.entries, k)
		}
	}
	for len(m.entries) > m.max {
		var oldestKey string
		var oldest time.Time
		first := true
		for k, e := range m.entries {
			if first || e.CreatedAt.Before(oldest) {
				oldestKey, oldest, first = k, e.CreatedAt, false
			}
		}
		delete(m.entries, oldestKey)
	}
}
