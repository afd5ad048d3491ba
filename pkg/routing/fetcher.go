package routing

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fieldinsights/field-sync-client/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Prometheus metrics for routed fetches.
var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldsync_fetches_total",
		Help: "Total routed fetches by route class and outcome",
	}, []string{"route", "outcome"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldsync_fetch_duration_seconds",
		Help:    "Routed fetch duration in seconds by route class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"route"})

	offlineFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldsync_offline_fallbacks_total",
		Help: "Total synthetic offline placeholder responses served",
	})
)

// GenerationProvider names the currently active cache generations.
// lifecycle.Manager implements it.
type GenerationProvider interface {
	StaticGeneration() string
	RuntimeGeneration() string
}

// Config holds the fetcher configuration.
type Config struct {
	// Store is the generation-scoped response cache.
	Store cache.Store

	// Generations names the active static and runtime generations.
	Generations GenerationProvider

	// Classifier assigns route classes. Its CriticalPrefixes are
	// normally Fallbacks.Prefixes().
	Classifier Classifier

	// Fallbacks maps critical-read endpoints to offline placeholders.
	Fallbacks *FallbackTable

	// HTTPClient is the transport for network fetches. Defaults to a
	// client with a 30s timeout.
	HTTPClient *http.Client

	// ShellPath is the precached application shell document served when
	// a navigation request cannot be satisfied. Defaults to /index.html.
	ShellPath string
}

// Fetcher executes one caching strategy per route class. Every outbound
// request of the field client passes through Do.
type Fetcher struct {
	httpClient  *http.Client
	store       cache.Store
	generations GenerationProvider
	classifier  Classifier
	fallbacks   *FallbackTable
	shellPath   string
	group       singleflight.Group
	logger      zerolog.Logger
}

// New creates a Fetcher.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if cfg.Generations == nil {
		return nil, fmt.Errorf("generation provider is required")
	}
	if cfg.Fallbacks == nil {
		cfg.Fallbacks = NewFallbackTable()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.ShellPath == "" {
		cfg.ShellPath = "/index.html"
	}

	return &Fetcher{
		httpClient:  cfg.HTTPClient,
		store:       cfg.Store,
		generations: cfg.Generations,
		classifier:  cfg.Classifier,
		fallbacks:   cfg.Fallbacks,
		shellPath:   cfg.ShellPath,
		logger:      log.With().Str("component", "routing").Logger(),
	}, nil
}

// netResult is a fully buffered network response. Buffering lets a single
// flight be shared across callers and the body be both cached and served.
type netResult struct {
	status int
	header http.Header
	body   []byte
}

func (r *netResult) response() *http.Response {
	return &http.Response{
		StatusCode:    r.status,
		Status:        http.StatusText(r.status),
		Header:        r.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(r.body)),
		ContentLength: int64(len(r.body)),
	}
}

// Do routes the request through its class strategy.
//
// Non-GET and cross-origin traffic goes straight to the network with no
// cache read, no cache write, and no synthetic fallback: mutations must
// fail loudly rather than silently no-op.
func (f *Fetcher) Do(req *http.Request) (*http.Response, error) {
	class := f.classifier.Classify(req)

	startTime := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(string(class)).Observe(time.Since(startTime).Seconds())
	}()

	switch class {
	case RoutePassthrough:
		resp, err := f.httpClient.Do(req)
		if err != nil {
			fetchesTotal.WithLabelValues(string(class), "error").Inc()
			return nil, &FetchError{Route: class, URL: req.URL.String(), Err: err}
		}
		fetchesTotal.WithLabelValues(string(class), "network").Inc()
		return resp, nil

	case RouteNavigation, RouteStatic:
		return f.cacheFirst(req, class)

	default:
		return f.networkFirst(req, class)
	}
}

// cacheFirst serves navigation and static-asset requests: cached copy if
// present, otherwise network (caching the result), otherwise the shell
// document for navigations.
func (f *Fetcher) cacheFirst(req *http.Request, class RouteClass) (*http.Response, error) {
	key := cache.KeyForRequest(req)

	if rec := f.lookup(req, key); rec != nil {
		fetchesTotal.WithLabelValues(string(class), "cache").Inc()
		return cache.RecordToResponse(rec), nil
	}

	result, err := f.fetchAndStore(req, key)
	if err == nil {
		fetchesTotal.WithLabelValues(string(class), "network").Inc()
		return result.response(), nil
	}

	if class == RouteNavigation {
		if rec := f.shellRecord(req); rec != nil {
			f.logger.Debug().Str("path", req.URL.Path).Msg("Serving cached shell for offline navigation")
			fetchesTotal.WithLabelValues(string(class), "shell").Inc()
			return cache.RecordToResponse(rec), nil
		}
	}

	fetchesTotal.WithLabelValues(string(class), "error").Inc()
	return nil, &FetchError{Route: class, URL: req.URL.String(), Err: err}
}

// networkFirst serves API reads: network, then cached copy, then (for
// critical reads) the synthetic offline placeholder.
func (f *Fetcher) networkFirst(req *http.Request, class RouteClass) (*http.Response, error) {
	key := cache.KeyForRequest(req)

	result, err := f.fetchAndStore(req, key)
	if err == nil {
		fetchesTotal.WithLabelValues(string(class), "network").Inc()
		return result.response(), nil
	}

	if rec := f.lookup(req, key); rec != nil {
		f.logger.Debug().Str("path", req.URL.Path).Msg("Network unreachable, serving cached copy")
		fetchesTotal.WithLabelValues(string(class), "cache").Inc()
		return cache.RecordToResponse(rec), nil
	}

	if class == RouteAPICritical {
		if fb, ok := f.fallbacks.Lookup(req.URL.Path); ok {
			f.logger.Warn().Str("path", req.URL.Path).Msg("Serving offline placeholder")
			fetchesTotal.WithLabelValues(string(class), "offline_fallback").Inc()
			offlineFallbacks.Inc()
			return syntheticResponse(fb), nil
		}
	}

	fetchesTotal.WithLabelValues(string(class), "error").Inc()
	return nil, &FetchError{Route: class, URL: req.URL.String(), Err: err}
}

// fetchAndStore performs the network fetch, writing successful responses
// to the runtime generation. Concurrent identical GETs share one flight,
// which also serializes cache writes per key.
func (f *Fetcher) fetchAndStore(req *http.Request, key cache.Key) (*netResult, error) {
	v, err, _ := f.group.Do(key.String(), func() (interface{}, error) {
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrNetworkUnavailable, err)
		}

		result := &netResult{
			status: resp.StatusCode,
			header: resp.Header.Clone(),
			body:   body,
		}

		// Only successful responses are cached; failures pass through
		// verbatim and never clobber a prior good record.
		if cache.Cacheable(result.status) {
			rec := &cache.Record{
				Status:   result.status,
				Header:   result.header.Clone(),
				Body:     result.body,
				StoredAt: time.Now(),
			}
			generation := f.generations.RuntimeGeneration()
			if err := f.store.Put(req.Context(), generation, key, rec); err != nil {
				f.logger.Warn().Err(err).Str("path", req.URL.Path).Msg("Failed to cache response")
			}
		}

		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*netResult), nil
}

// lookup searches the runtime generation first, then the static one, the
// way the platform cache matches across open caches.
func (f *Fetcher) lookup(req *http.Request, key cache.Key) *cache.Record {
	ctx := req.Context()
	for _, generation := range []string{f.generations.RuntimeGeneration(), f.generations.StaticGeneration()} {
		rec, err := f.store.Get(ctx, generation, key)
		if err == nil {
			return rec
		}
		if err != cache.ErrCacheMiss {
			f.logger.Warn().Err(err).Str("path", req.URL.Path).Msg("Cache get error")
		}
	}
	return nil
}

// shellRecord fetches the precached application shell document.
func (f *Fetcher) shellRecord(req *http.Request) *cache.Record {
	key := cache.Key{Method: http.MethodGet, Path: f.shellPath}
	rec, err := f.store.Get(req.Context(), f.generations.StaticGeneration(), key)
	if err != nil {
		return nil
	}
	return rec
}

func syntheticResponse(fb Fallback) *http.Response {
	header := http.Header{}
	header.Set("Content-Type", fb.ContentType)
	header.Set(OfflineHeader, "true")
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        http.StatusText(http.StatusOK),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(fb.Payload)),
		ContentLength: int64(len(fb.Payload)),
	}
}
