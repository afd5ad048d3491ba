package cache

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the in-process cache tier. It backs unit tests on its own
// and fronts the Redis tier in production (see TieredStore).
type MemoryStore struct {
	mu   sync.RWMutex
	gens map[string]map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		gens: make(map[string]map[string]*Record),
	}
}

// Get retrieves a record. Returns ErrCacheMiss when either the generation
// or the key is absent; there is no implicit default value.
func (s *MemoryStore) Get(_ context.Context, generation string, key Key) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.gens[generation]
	if !ok {
		cacheMisses.Inc()
		return nil, ErrCacheMiss
	}
	rec, ok := records[key.String()]
	if !ok {
		cacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	cacheHits.WithLabelValues("memory").Inc()
	return rec, nil
}

// Put stores a record. The write is atomic at key granularity: the map
// swap happens under the lock, so a reader never observes a partial record.
func (s *MemoryStore) Put(_ context.Context, generation string, key Key, rec *Record) error {
	if rec == nil {
		return ErrInvalidRecord
	}
	if !Cacheable(rec.Status) {
		return ErrNotCacheable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.gens[generation]
	if !ok {
		records = make(map[string]*Record)
		s.gens[generation] = records
	}
	records[key.String()] = rec
	cacheSize.WithLabelValues("memory").Add(float64(len(rec.Body)))
	return nil
}

// DeleteGeneration drops every record under the named generation.
func (s *MemoryStore) DeleteGeneration(_ context.Context, generation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.gens, generation)
	return nil
}

// Generations enumerates generation names in sorted order.
func (s *MemoryStore) Generations(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.gens))
	for name := range s.gens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
