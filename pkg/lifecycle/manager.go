// Package lifecycle owns cache generation versioning: precaching the
// application shell on install, purging stale generations on activation,
// and the deferred retry hook fired when connectivity returns.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fieldinsights/field-sync-client/pkg/cache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle position of one cache version.
type State string

const (
	// StateInstalling means the static generation is being precached.
	StateInstalling State = "installing"

	// StateWaiting means precache completed and the version is ready to
	// activate.
	StateWaiting State = "waiting"

	// StateActive means this version owns the cache namespace and its
	// generations serve requests.
	StateActive State = "active"

	// StateSuperseded means a newer version has activated.
	StateSuperseded State = "superseded"
)

// ErrInvalidTransition is returned when a lifecycle step is attempted out
// of order.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// DefaultManifest is the shell asset set precached on install.
var DefaultManifest = []string{"/", "/index.html", "/manifest.json"}

// Config holds the manager configuration.
type Config struct {
	// Store is the generation-scoped response cache.
	Store cache.Store

	// Version suffixes the generation names (e.g. "v1" yields
	// "field-insights-static-v1" / "field-insights-runtime-v1").
	Version string

	// Origin is the base URL shell assets are fetched from on install.
	Origin string

	// Manifest lists the shell asset paths to precache. Defaults to
	// DefaultManifest.
	Manifest []string

	// HTTPClient is the transport used for precaching. Defaults to a
	// client with a 30s timeout.
	HTTPClient *http.Client
}

// Manager drives one cache version through
// Installing → Waiting → Active → Superseded.
type Manager struct {
	mu    sync.Mutex
	state State

	staticGen  string
	runtimeGen string

	store      cache.Store
	origin     string
	manifest   []string
	httpClient *http.Client

	retryHooks    []func(context.Context) error
	pushHandlers  []func(Notification)
	clickHandlers []func(action string)

	logger zerolog.Logger
}

// New creates a Manager in the Installing state.
func New(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("version is required")
	}
	if len(cfg.Manifest) == 0 {
		cfg.Manifest = DefaultManifest
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Manager{
		state:      StateInstalling,
		staticGen:  "field-insights-static-" + cfg.Version,
		runtimeGen: "field-insights-runtime-" + cfg.Version,
		store:      cfg.Store,
		origin:     cfg.Origin,
		manifest:   cfg.Manifest,
		httpClient: cfg.HTTPClient,
		logger:     log.With().Str("component", "lifecycle").Logger(),
	}, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StaticGeneration names the static cache generation of this version.
func (m *Manager) StaticGeneration() string { return m.staticGen }

// RuntimeGeneration names the runtime cache generation of this version.
func (m *Manager) RuntimeGeneration() string { return m.runtimeGen }

// Generations returns this version's generation pair.
func (m *Manager) Generations() []cache.Generation {
	return []cache.Generation{
		{Name: m.staticGen, Role: cache.RoleStatic},
		{Name: m.runtimeGen, Role: cache.RoleRuntime},
	}
}

// Install precaches the shell manifest into the static generation and
// transitions Installing → Waiting. Any precache failure aborts the
// install: the state does not advance, so a prior version (if any)
// remains active and this one never purges its generations.
func (m *Manager) Install(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateInstalling {
		return fmt.Errorf("%w: install from %s", ErrInvalidTransition, m.state)
	}

	m.logger.Info().Str("generation", m.staticGen).Msg("Precaching shell assets")

	for _, path := range m.manifest {
		if err := m.precache(ctx, path); err != nil {
			m.logger.Error().Err(err).Str("path", path).Msg("Precache failed, aborting install")
			return fmt.Errorf("precache %s: %w", path, err)
		}
	}

	m.state = StateWaiting
	m.logger.Info().Int("assets", len(m.manifest)).Msg("Shell precached")
	return nil
}

// Activate transitions Waiting → Active. It enumerates every generation in
// the store and deletes each one not belonging to this version's pair.
// This is the only place stale cache data is purged, and it completes
// before the version starts serving requests.
func (m *Manager) Activate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateWaiting {
		return fmt.Errorf("%w: activate from %s", ErrInvalidTransition, m.state)
	}

	names, err := m.store.Generations(ctx)
	if err != nil {
		return fmt.Errorf("enumerate generations: %w", err)
	}

	for _, name := range names {
		if name == m.staticGen || name == m.runtimeGen {
			continue
		}
		m.logger.Info().Str("generation", name).Msg("Deleting stale generation")
		if err := m.store.DeleteGeneration(ctx, name); err != nil {
			return fmt.Errorf("delete generation %s: %w", name, err)
		}
	}

	m.state = StateActive
	m.logger.Info().
		Str("static", m.staticGen).
		Str("runtime", m.runtimeGen).
		Msg("Cache version activated")
	return nil
}

// Supersede marks this version as replaced by a newer one.
func (m *Manager) Supersede() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateActive {
		m.state = StateSuperseded
		m.logger.Info().Str("static", m.staticGen).Msg("Cache version superseded")
	}
}

func (m *Manager) precache(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.origin+path, nil)
	if err != nil {
		return err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	rec, err := cache.ResponseToRecord(resp)
	if err != nil {
		return err
	}

	key := cache.Key{Method: http.MethodGet, Path: path}
	return m.store.Put(ctx, m.staticGen, key, rec)
}
