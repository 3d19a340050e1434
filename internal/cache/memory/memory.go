// Package memory keeps cached responses in process memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/embedscraper/internal/cache"
)

type item struct {
	entry   *cache.Entry
	expires time.Time
}

// Store is an in-memory cache.Cache. Expired entries are dropped lazily on
// lookup and by Sweep.
type Store struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{items: make(map[string]item), now: time.Now}
}

// Get implements cache.Cache.
func (s *Store) Get(_ context.Context, key string) (*cache.Entry, bool, error) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(it.expires) {
		s.mu.Lock()
		if cur, still := s.items[key]; still && cur.expires.Equal(it.expires) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return it.entry.Clone(), true, nil
}

// Set implements cache.Cache.
func (s *Store) Set(_ context.Context, key string, e *cache.Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = item{entry: e.Clone(), expires: s.now().Add(ttl)}
	return nil
}

// Sweep removes every expired entry and returns how many were dropped.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, it := range s.items {
		if !now.Before(it.expires) {
			delete(s.items, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Ping implements cache.Cache.
func (s *Store) Ping(context.Context) error { return nil }

// Name implements cache.Cache.
func (s *Store) Name() string { return "memory" }

// Close implements cache.Cache.
func (s *Store) Close() error { return nil }
