// Package app is the composition root. It reads the configuration and
// connects the source loaders, fetch layer, cache, engine and rate limiter
// into the QueryService used by every transport.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/custodia-labs/govlens/internal/adapters/driven/config/file"
	"github.com/custodia-labs/govlens/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/govlens/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/govlens/internal/adapters/driven/telemetry"
	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
	"github.com/custodia-labs/govlens/internal/core/services"
	"github.com/custodia-labs/govlens/internal/logger"
	"github.com/custodia-labs/govlens/internal/normalisers"
	"github.com/custodia-labs/govlens/internal/sources"
)

// App holds the wired services of one process.
type App struct {
	Settings domain.Settings
	Engine   *services.Engine

	// Query is the rate-limited service handed to transports.
	Query driving.QueryService

	// Metrics serves the Prometheus registry.
	Metrics http.Handler

	warmer     *services.Warmer
	notifiers  []driven.ChangeNotifier
	dispatcher *telemetry.Dispatcher
	store      *sqlite.Store

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads the configuration at configPath (empty means the default path)
// and wires the application.
func New(ctx context.Context, configPath string) (*App, error) {
	logger.Section("Configuration")
	var cfgStore driven.ConfigStore
	cfgStore, err := file.NewConfigStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger.Debug("config: %s (loaded=%t)", cfgStore.Path(), cfgStore.Loaded())
	return Build(ctx, cfgStore.Settings())
}

// Build wires the application from settings.
func Build(ctx context.Context, settings domain.Settings) (*App, error) {
	if err := file.Validate(settings); err != nil {
		return nil, err
	}

	a := &App{Settings: settings}

	prom := telemetry.NewPrometheusSink()
	a.dispatcher = telemetry.NewDispatcher(0, prom, telemetry.LogSink{})
	if err := prom.RegisterDropped(a.dispatcher); err != nil {
		a.dispatcher.Close()
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	a.Metrics = prom.Handler()

	snapshots := a.openSnapshots(settings.Snapshot)

	logger.Section("Sources")
	registry, err := sources.Build(ctx, settings.Sources, snapshots)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building sources: %w", err)
	}
	logger.Debug("live sources: %v", registry.Names())
	a.notifiers = registry.Notifiers

	fetchOpts := []services.FetchOption{services.WithFetchTelemetry(a.dispatcher)}
	if snapshots != nil {
		fetchOpts = append(fetchOpts, services.WithSnapshotStore(snapshots))
	}
	fetch := services.NewFetchLayer(settings.Breaker, registry.Live, registry.Fallbacks, fetchOpts...)

	mappings, err := registry.Static.Mappings()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("loading curated mappings: %w", err)
	}

	engine, err := services.NewEngine(services.EngineDeps{
		Catalog:  registry.Catalog(settings.Frameworks),
		Loader:   services.NewFrameworkLoader(fetch, normalisers.All(), a.dispatcher),
		Cache:    services.NewCache(settings.Cache, services.WithCacheTelemetry(a.dispatcher)),
		Breakers: fetch,
		Mappings: mappings,
	}, settings)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Engine = engine
	a.Query = services.NewGuardedService(engine, services.NewRateLimiter(settings.RateLimit, nil), a.dispatcher)

	if settings.Warmer.Enabled {
		a.warmer = services.NewWarmer(engine, settings.Warmer.Interval.Std())
	}
	return a, nil
}

// openSnapshots opens the sqlite snapshot store, falling back to an
// in-memory store when the database cannot be opened.
func (a *App) openSnapshots(cfg domain.SnapshotSettings) driven.SnapshotStore {
	if !cfg.Enabled {
		return nil
	}
	store, err := sqlite.NewStore(cfg.Dir)
	if err != nil {
		logger.Warn("snapshot: %v, keeping snapshots in memory", err)
		return memory.NewSnapshotStore()
	}
	logger.Debug("snapshot: %s", store.Path())
	a.store = store
	return store.SnapshotStore()
}

// Start launches the background warmer and change watchers. They stop when
// ctx ends or Close is called.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.warmer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.warmer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("warmer stopped: %v", err)
			}
		}()
	}

	for _, n := range a.notifiers {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			err := n.Watch(ctx, func(resourceID string) {
				logger.Debug("watch: %s changed", resourceID)
				a.Engine.InvalidateResource(resourceID)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("watcher stopped: %v", err)
			}
		}()
	}
}

// Close stops background work and releases the snapshot store.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.warmer != nil {
		_ = a.warmer.Stop()
	}
	a.wg.Wait()
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
