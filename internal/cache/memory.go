package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roamvest/scout-api/internal/model"
)

// Memory is an in-process Store backed by a mutex-guarded map. Expired
// entries are dropped lazily on read; a full sweep runs opportunistically
// when Put pushes the entry count past the ceiling. There is no background
// sweeper.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time // injectable for testing
}

// MemoryOption configures the in-memory store.
type MemoryOption func(*Memory)

// WithTTL overrides the default 24h entry lifetime.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// WithMaxEntries overrides the sweep-trigger ceiling.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		m.maxEntries = n
	}
}

// WithClock sets a fixed clock for testing.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an in-memory cache store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:    make(map[string]*Entry),
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if m.now().Sub(e.Timestamp) >= m.ttl {
		delete(m.entries, key)
		return nil, ErrMiss
	}
	return e, nil
}

// Put implements Store. When the entry count exceeds the ceiling it sweeps
// expired entries in the same critical section.
func (m *Memory) Put(_ context.Context, key string, locations []model.NearbyLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = &Entry{
		Key:       key,
		Locations: locations,
		Timestamp: m.now(),
	}

	if len(m.entries) > m.maxEntries {
		swept := m.sweepLocked()
		if swept > 0 {
			zap.L().Debug("cache: swept expired entries",
				zap.Int("swept", swept),
				zap.Int("remaining", len(m.entries)),
			)
		}
	}
	return nil
}

// Sweep implements Store.
func (m *Memory) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(), nil
}

// Len returns the current entry count.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) sweepLocked() int {
	now := m.now()
	swept := 0
	for key, e := range m.entries {
		if now.Sub(e.Timestamp) >= m.ttl {
			delete(m.entries, key)
			swept++
		}
	}
	return swept
}
