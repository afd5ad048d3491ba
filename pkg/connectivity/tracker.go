package connectivity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for connectivity tracking.
var (
	connectivityOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fieldsync_connectivity_online",
		Help: "1 when the link is online, 0 otherwise",
	})

	probeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldsync_probe_failures_total",
		Help: "Total number of failed connectivity probes",
	})

	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldsync_reconnects_total",
		Help: "Total number of offline-to-online transitions",
	})
)

// Tracker monitors network reachability and fires reconnect callbacks on
// offline-to-online transitions.
type Tracker struct {
	mu    sync.Mutex
	state State

	redis      *redis.Client // optional, shares state across processes
	httpClient *http.Client
	logger     zerolog.Logger

	onReconnect []func(context.Context)
}

// NewTracker creates a connectivity tracker. redisClient may be nil, in
// which case the state is process-local only.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		state:      State{LastSuccess: time.Now(), LastUpdate: time.Now()},
		redis:      redisClient,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// OnReconnect registers a callback fired when the link transitions from
// offline back to online. This is how the host platform triggers the
// lifecycle retryFailedUploads task.
func (t *Tracker) OnReconnect(fn func(context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReconnect = append(t.onReconnect, fn)
}

// Status returns the current link status.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Status()
}

// Online reports whether the link is currently considered up.
func (t *Tracker) Online() bool {
	return t.Status() == StatusOnline
}

// Probe issues a GET against the given URL and records the outcome.
func (t *Tracker) Probe(ctx context.Context, url string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.RecordFailure(ctx)
		return
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.RecordFailure(ctx)
		return
	}
	resp.Body.Close()

	// Any response at all means the network path works; server-side
	// errors are not connectivity failures.
	t.RecordSuccess(ctx)
}

// RecordSuccess resets the failure count. If the link was offline, the
// reconnect callbacks fire.
func (t *Tracker) RecordSuccess(ctx context.Context) {
	t.mu.Lock()
	wasOffline := t.state.Status() == StatusOffline
	t.state.ConsecutiveFailures = 0
	t.state.LastSuccess = time.Now()
	t.state.LastUpdate = time.Now()
	callbacks := make([]func(context.Context), len(t.onReconnect))
	copy(callbacks, t.onReconnect)
	t.mu.Unlock()

	connectivityOnline.Set(1)
	t.persist(ctx)

	if wasOffline {
		reconnectsTotal.Inc()
		t.logger.Info().Msg("Connectivity restored")
		for _, fn := range callbacks {
			fn(ctx)
		}
	}
}

// RecordFailure increments the failure count.
func (t *Tracker) RecordFailure(ctx context.Context) {
	t.mu.Lock()
	t.state.ConsecutiveFailures++
	t.state.LastUpdate = time.Now()
	status := t.state.Status()
	failures := t.state.ConsecutiveFailures
	t.mu.Unlock()

	probeFailuresTotal.Inc()
	if status != StatusOnline {
		connectivityOnline.Set(0)
	}
	t.persist(ctx)

	t.logger.Debug().
		Int("consecutive_failures", failures).
		Str("status", string(status)).
		Msg("Connectivity probe failed")
}

// GetState retrieves the shared state from Redis, falling back to the
// local state when Redis is not configured or holds nothing.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		s := t.state
		return &s, nil
	}

	data, err := t.redis.Get(ctx, RedisKeyState).Bytes()
	if err == redis.Nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		s := t.state
		return &s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get connectivity state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse connectivity state: %w", err)
	}
	return &s, nil
}

func (t *Tracker) persist(ctx context.Context) {
	if t.redis == nil {
		return
	}

	t.mu.Lock()
	data, err := json.Marshal(t.state)
	t.mu.Unlock()
	if err != nil {
		return
	}

	if err := t.redis.Set(ctx, RedisKeyState, data, 0).Err(); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to persist connectivity state")
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (t *Tracker) SetHTTPClient(client *http.Client) {
	t.httpClient = client
}
