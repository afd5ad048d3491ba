package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// generationIndex is the Redis set holding all known generation names.
	generationIndex = "fieldsync:generations"

	// keyIndexPrefix prefixes the per-generation set of record keys.
	keyIndexPrefix = "fieldsync:keys:"
)

// RedisStore is the durable cache tier backed by Redis.
//
// Records are stored without TTL: staleness is handled exclusively by
// generation replacement (see lifecycle.Manager), never by expiry.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
	}
}

// Get retrieves a record by key.
// Returns ErrCacheMiss if the key doesn't exist in the generation.
func (s *RedisStore) Get(ctx context.Context, generation string, key Key) (*Record, error) {
	data, err := s.redis.Get(ctx, storageKey(generation, key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			cacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	cacheHits.WithLabelValues("redis").Inc()
	cacheSize.WithLabelValues("redis").Add(float64(len(data)))

	return &rec, nil
}

// Put stores a record and registers it in the generation's key index so
// DeleteGeneration can find it later.
func (s *RedisStore) Put(ctx context.Context, generation string, key Key, rec *Record) error {
	if rec == nil {
		return ErrInvalidRecord
	}
	if !Cacheable(rec.Status) {
		return ErrNotCacheable
	}

	data, err := json.Marshal(rec)
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache record: %w", err)
	}

	skey := storageKey(generation, key)
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, skey, data, 0)
	pipe.SAdd(ctx, keyIndexPrefix+generation, skey)
	pipe.SAdd(ctx, generationIndex, generation)
	if _, err := pipe.Exec(ctx); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	cacheSize.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// DeleteGeneration removes every record under the named generation along
// with its key index.
func (s *RedisStore) DeleteGeneration(ctx context.Context, generation string) error {
	keys, err := s.redis.SMembers(ctx, keyIndexPrefix+generation).Result()
	if err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis smembers: %w", err)
	}

	pipe := s.redis.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, keyIndexPrefix+generation)
	pipe.SRem(ctx, generationIndex, generation)
	if _, err := pipe.Exec(ctx); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	generationPurges.Inc()
	return nil
}

// Generations enumerates all generation names known to the index.
func (s *RedisStore) Generations(ctx context.Context) ([]string, error) {
	names, err := s.redis.SMembers(ctx, generationIndex).Result()
	if err != nil {
		cacheErrors.WithLabelValues("generations").Inc()
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	return names, nil
}
