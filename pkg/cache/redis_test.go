package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client. Unit tests skip when no local
// Redis is reachable; tests/integration covers the same paths against a
// containerized instance.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil)
}

func TestRedisStore_PutAndGet(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	key := Key{Method: "GET", Path: "/v1/product-lines"}
	rec := testRecord(200, `[{"id":"pl-1","name":"Cardio"}]`)

	if err := store.Put(ctx, "field-insights-runtime-v1", key, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "field-insights-runtime-v1", key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Body) != string(rec.Body) {
		t.Errorf("Body mismatch: got %s, want %s", got.Body, rec.Body)
	}
	if got.Status != rec.Status {
		t.Errorf("Status mismatch: got %d, want %d", got.Status, rec.Status)
	}
}

func TestRedisStore_Get_CacheMiss(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	key := Key{Method: "GET", Path: "/v1/nonexistent"}

	if _, err := store.Get(ctx, "field-insights-runtime-v1", key); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisStore_Put_RejectsNonSuccess(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	key := Key{Method: "GET", Path: "/v1/product-lines"}

	if err := store.Put(ctx, "gen", key, testRecord(503, "unavailable")); err != ErrNotCacheable {
		t.Errorf("Put(503) = %v, want ErrNotCacheable", err)
	}
}

func TestRedisStore_DeleteGeneration(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	keyA := Key{Method: "GET", Path: "/index.html"}
	keyB := Key{Method: "GET", Path: "/manifest.json"}

	if err := store.Put(ctx, "field-insights-static-v1", keyA, testRecord(200, "<html>")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "field-insights-static-v1", keyB, testRecord(200, "{}")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "field-insights-static-v2", keyA, testRecord(200, "<html>")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.DeleteGeneration(ctx, "field-insights-static-v1"); err != nil {
		t.Fatalf("DeleteGeneration failed: %v", err)
	}

	if _, err := store.Get(ctx, "field-insights-static-v1", keyA); err != ErrCacheMiss {
		t.Errorf("record survived generation delete: %v", err)
	}
	if _, err := store.Get(ctx, "field-insights-static-v1", keyB); err != ErrCacheMiss {
		t.Errorf("record survived generation delete: %v", err)
	}
	if _, err := store.Get(ctx, "field-insights-static-v2", keyA); err != nil {
		t.Errorf("surviving generation lost: %v", err)
	}

	names, err := store.Generations(ctx)
	if err != nil {
		t.Fatalf("Generations failed: %v", err)
	}
	if len(names) != 1 || names[0] != "field-insights-static-v2" {
		t.Errorf("Generations = %v", names)
	}
}
