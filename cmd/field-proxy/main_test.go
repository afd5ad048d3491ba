package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fieldinsights/field-sync-client/pkg/cache"
	"github.com/fieldinsights/field-sync-client/pkg/lifecycle"
	"github.com/fieldinsights/field-sync-client/pkg/routing"
)

func newActiveManager(t *testing.T, origin string, store cache.Store) *lifecycle.Manager {
	t.Helper()

	manager, err := lifecycle.New(lifecycle.Config{
		Store:   store,
		Version: "v1",
		Origin:  origin,
	})
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}

	ctx := context.Background()
	if err := manager.Install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := manager.Activate(ctx); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return manager
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>shell</html>"))
	}))
	defer origin.Close()

	store := cache.NewMemoryStore()

	t.Run("not_ready_before_activation", func(t *testing.T) {
		manager, err := lifecycle.New(lifecycle.Config{
			Store:   store,
			Version: "v1",
			Origin:  origin.URL,
		})
		if err != nil {
			t.Fatalf("create manager: %v", err)
		}

		w := httptest.NewRecorder()
		readyHandler(nil, manager)(w, httptest.NewRequest("GET", "/readyz", nil))

		if w.Result().StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Result().StatusCode)
		}
	})

	t.Run("ready_when_active", func(t *testing.T) {
		manager := newActiveManager(t, origin.URL, store)

		w := httptest.NewRecorder()
		readyHandler(nil, manager)(w, httptest.NewRequest("GET", "/readyz", nil))

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Result().StatusCode)
		}
	})
}

func TestProxyHandler_ServesCachedShellOffline(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>shell</html>"))
	}))

	store := cache.NewMemoryStore()
	manager := newActiveManager(t, origin.URL, store)

	fallbacks := routing.DefaultFallbackTable("/v1")
	fetcher, err := routing.New(routing.Config{
		Store:       store,
		Generations: manager,
		Classifier: routing.Classifier{
			Origin:           origin.URL,
			APIPrefix:        "/v1",
			CriticalPrefixes: fallbacks.Prefixes(),
		},
		Fallbacks: fallbacks,
	})
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}

	handler := proxyHandler(fetcher, origin.URL, zerolog.Nop())

	// The origin goes away; navigations must still get the precached shell.
	origin.Close()

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/dashboard", nil))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "<html>shell</html>" {
		t.Errorf("body = %q, want precached shell", string(body))
	}
}

func TestProxyHandler_OriginErrorPassesThrough(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Write([]byte("<html>shell</html>"))
	}))
	defer origin.Close()

	store := cache.NewMemoryStore()
	manager := newActiveManager(t, origin.URL, store)

	fetcher, err := routing.New(routing.Config{
		Store:       store,
		Generations: manager,
		Classifier:  routing.Classifier{Origin: origin.URL, APIPrefix: "/v1"},
	})
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}

	handler := proxyHandler(fetcher, origin.URL, zerolog.Nop())

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("POST", "/v1/insights", nil))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected origin's 400 passed through, got %d", w.Result().StatusCode)
	}
}
