// Command field-proxy runs the offline-resilient sync layer as a local HTTP
// proxy: every request from the field app passes through the routing fetcher,
// which applies the per-route caching strategy against the generation-scoped
// cache.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/fieldinsights/field-sync-client/pkg/cache"
	"github.com/fieldinsights/field-sync-client/pkg/connectivity"
	"github.com/fieldinsights/field-sync-client/pkg/lifecycle"
	"github.com/fieldinsights/field-sync-client/pkg/logging"
	"github.com/fieldinsights/field-sync-client/pkg/routing"
)

type config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	Origin    string `env:"APP_ORIGIN" envDefault:"http://localhost:3000"`
	APIPrefix string `env:"API_PREFIX" envDefault:"/v1"`
	Version   string `env:"CACHE_VERSION" envDefault:"v1"`

	// RedisURL enables the persistent cache tier. Empty means memory-only.
	RedisURL string `env:"REDIS_URL"`

	// ProbeSchedule drives the periodic connectivity probe.
	ProbeSchedule string `env:"PROBE_SCHEDULE" envDefault:"@every 30s"`
	ProbePath     string `env:"PROBE_PATH" envDefault:"/healthz"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "parse config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx := context.Background()

	store, redisClient, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build cache store")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	manager, err := lifecycle.New(lifecycle.Config{
		Store:   store,
		Version: cfg.Version,
		Origin:  cfg.Origin,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create lifecycle manager")
	}

	if err := manager.Install(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Shell precache failed")
	}
	if err := manager.Activate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Activation failed")
	}

	fallbacks := routing.DefaultFallbackTable(cfg.APIPrefix)
	fetcher, err := routing.New(routing.Config{
		Store:       store,
		Generations: manager,
		Classifier: routing.Classifier{
			Origin:           cfg.Origin,
			APIPrefix:        cfg.APIPrefix,
			CriticalPrefixes: fallbacks.Prefixes(),
		},
		Fallbacks: fallbacks,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create fetcher")
	}

	tracker := connectivity.NewTracker(redisClient, logging.NewLogger("connectivity"))
	tracker.OnReconnect(func(ctx context.Context) {
		manager.RetryFailedUploads(ctx)
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ProbeSchedule, func() {
		tracker.Probe(context.Background(), cfg.Origin+cfg.ProbePath)
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.ProbeSchedule).Msg("Invalid probe schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.HandleFunc("/readyz", readyHandler(redisClient, manager))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", proxyHandler(fetcher, cfg.Origin, logger))

	addr := ":" + cfg.Port
	logger.Info().
		Str("addr", addr).
		Str("origin", cfg.Origin).
		Str("version", cfg.Version).
		Msg("Starting field sync proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// buildStore returns a tiered store when Redis is configured, otherwise a
// process-local memory store.
func buildStore(ctx context.Context, cfg config) (cache.Store, *redis.Client, error) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryStore(), nil, nil
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisURL, err)
	}

	return cache.NewTieredStore(cache.NewRedisStore(redisClient)), redisClient, nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports ready once the cache version is active and the Redis
// tier (when configured) is reachable.
func readyHandler(redisClient *redis.Client, manager *lifecycle.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager.State() != lifecycle.StateActive {
			http.Error(w, "cache version not active", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// proxyHandler forwards requests to the app origin through the routing
// fetcher, so the caching strategies and offline fallbacks apply.
func proxyHandler(fetcher *routing.Fetcher, origin string, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := origin + r.URL.RequestURI()
		req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Header = r.Header.Clone()

		resp, err := fetcher.Do(req)
		if err != nil {
			http.Error(w, fmt.Sprintf("fetch failed: %v", err), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.Warn().Err(err).Msg("Failed to write response")
		}
	}
}
