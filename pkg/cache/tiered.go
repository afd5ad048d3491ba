package cache

import "context"

// TieredStore layers a MemoryStore in front of a durable backing store.
// Reads hit memory first and repopulate it from the backing tier; writes
// and generation deletes go to both tiers.
type TieredStore struct {
	memory  *MemoryStore
	backing Store
}

// NewTieredStore creates a tiered store. backing may be nil, in which case
// the store is memory-only (used by tests and by the proxy when Redis is
// not configured).
func NewTieredStore(backing Store) *TieredStore {
	return &TieredStore{
		memory:  NewMemoryStore(),
		backing: backing,
	}
}

// Get checks the memory tier, then the backing tier. A backing hit is
// promoted into memory so the next read is local.
func (s *TieredStore) Get(ctx context.Context, generation string, key Key) (*Record, error) {
	if rec, err := s.memory.Get(ctx, generation, key); err == nil {
		return rec, nil
	}
	if s.backing == nil {
		return nil, ErrCacheMiss
	}

	rec, err := s.backing.Get(ctx, generation, key)
	if err != nil {
		return nil, err
	}

	// Promotion failure is not a read failure.
	_ = s.memory.Put(ctx, generation, key, rec)
	return rec, nil
}

// Put writes to both tiers. The backing write is authoritative: if it
// fails, the memory copy is dropped so the tiers cannot diverge.
func (s *TieredStore) Put(ctx context.Context, generation string, key Key, rec *Record) error {
	if err := s.memory.Put(ctx, generation, key, rec); err != nil {
		return err
	}
	if s.backing == nil {
		return nil
	}
	if err := s.backing.Put(ctx, generation, key, rec); err != nil {
		_ = s.memory.DeleteGeneration(ctx, generation)
		return err
	}
	return nil
}

// DeleteGeneration purges the generation from both tiers.
func (s *TieredStore) DeleteGeneration(ctx context.Context, generation string) error {
	if err := s.memory.DeleteGeneration(ctx, generation); err != nil {
		return err
	}
	if s.backing == nil {
		return nil
	}
	return s.backing.DeleteGeneration(ctx, generation)
}

// Generations reports the backing tier's view when one exists; the memory
// tier only ever holds a subset of it.
func (s *TieredStore) Generations(ctx context.Context) ([]string, error) {
	if s.backing != nil {
		return s.backing.Generations(ctx)
	}
	return s.memory.Generations(ctx)
}
