package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrNotCacheable indicates the record's status forbids storing it
	ErrNotCacheable = errors.New("response not cacheable")

	// ErrInvalidRecord indicates the stored record is invalid or corrupted
	ErrInvalidRecord = errors.New("invalid cache record")
)

// Store is the contract every cache tier implements.
//
// A record is either fully present or absent at its key; writers for the
// same key are serialized by the implementation (last writer wins, which is
// acceptable because cacheable traffic is idempotent GETs).
type Store interface {
	// Get returns the record stored under key in the named generation,
	// or ErrCacheMiss if absent.
	Get(ctx context.Context, generation string, key Key) (*Record, error)

	// Put stores a record under key in the named generation.
	// Returns ErrNotCacheable if the record's status is not 2xx.
	Put(ctx context.Context, generation string, key Key, rec *Record) error

	// DeleteGeneration removes every record stored under the named
	// generation.
	DeleteGeneration(ctx context.Context, generation string) error

	// Generations enumerates the names of all generations holding at
	// least one record.
	Generations(ctx context.Context) ([]string, error)
}
