// Package cache provides the generation-scoped HTTP response store backing
// the field client's offline behavior.
//
// The store keeps captured responses under named generations. A generation
// is one version of the cache namespace; exactly one generation per role
// (static, runtime) is current at any time. Records carry no TTL: the only
// way data leaves the cache is when lifecycle activation purges a stale
// generation.
//
// Two tiers are provided: an in-process MemoryStore and a Redis-backed
// RedisStore, layered by TieredStore (memory front, Redis back). All tiers
// implement the same Store interface, so tests substitute a memory-only
// store for deterministic behavior.
//
// # Basic Usage
//
//	store := cache.NewTieredStore(cache.NewRedisStore(redisClient))
//
//	key := cache.KeyForRequest(req)
//
//	rec, err := store.Get(ctx, "field-insights-runtime-v1", key)
//	if err == cache.ErrCacheMiss {
//		// fetch from network
//	}
//
// # Storing Responses
//
//	rec, err := cache.ResponseToRecord(resp)
//	if err != nil {
//		return err
//	}
//	if err := store.Put(ctx, generation, key, rec); err != nil {
//		return err
//	}
//
// Put rejects anything but 2xx responses (ErrNotCacheable): a failed
// refetch never overwrites a prior good record.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - fieldsync_cache_hits_total{tier} - Cache hits by tier
//   - fieldsync_cache_misses_total - Cache misses
//   - fieldsync_cache_size_bytes{tier} - Bytes written by tier
//   - fieldsync_cache_errors_total{operation} - Cache operation errors
//   - fieldsync_cache_generation_purges_total - Generations purged
package cache
