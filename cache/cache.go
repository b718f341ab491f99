package cache

import (
	"context"
	"sync"
	"time"
)

type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type entry[S any] struct {
	val     S
	expires time.Time
}

// MemoryCache is a process-local Cache. A zero ttl keeps entries forever.
// Expired entries are dropped when read and swept at most once per ttl on
// Set.
type MemoryCache[S any] struct {
	mu        sync.Mutex
	m         map[string]entry[S]
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryCache[S any](ttl time.Duration) *MemoryCache[S] {
	return &MemoryCache[S]{m: map[string]entry[S]{}, ttl: ttl, now: time.Now}
}

func (m *MemoryCache[S]) Set(ctx context.Context, key string, val S) error {
	e := entry[S]{val: val}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ttl > 0 {
		now := m.now()
		e.expires = now.Add(m.ttl)
		if now.After(m.nextSweep) {
			m.sweep()
			m.nextSweep = now.Add(m.ttl)
		}
	}
	m.m[key] = e
	return nil
}

func (m *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		var zero S
		return zero, false, nil
	}
	return e.val, true, nil
}

// Len counts live entries.
func (m *MemoryCache[S]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	return len(m.m)
}

func (m *MemoryCache[S]) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.m, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	return ok, nil
}

// lookup returns a live entry, deleting it when expired. Callers hold mu.
func (m *MemoryCache[S]) lookup(key string) (entry[S], bool) {
	e, ok := m.m[key]
	if !ok {
		return e, false
	}
	if m.expired(e) {
		delete(m.m, key)
		return e, false
	}
	return e, true
}

func (m *MemoryCache[S]) sweep() {
	for key, e := range m.m {
		if m.expired(e) {
			delete(m.m, key)
		}
	}
}

func (m *MemoryCache[S]) expired(e entry[S]) bool {
	return !e.expires.IsZero() && m.now().After(e.expires)
}
