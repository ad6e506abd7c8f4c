package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/logger"
)

// FetchResult is the bytes of one resource and where they came from.
type FetchResult struct {
	Data   []byte
	Origin domain.OriginKind

	// Source is the name of the loader that served the bytes.
	Source string
}

// FetchOption configures a FetchLayer.
type FetchOption func(*FetchLayer)

// WithFetchClock overrides the time source used by breakers.
func WithFetchClock(now func() time.Time) FetchOption {
	return func(f *FetchLayer) { f.now = now }
}

// WithSleep overrides the backoff sleep, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) FetchOption {
	return func(f *FetchLayer) { f.sleep = sleep }
}

// WithFetchTelemetry sets the telemetry sink.
func WithFetchTelemetry(t driven.Telemetry) FetchOption {
	return func(f *FetchLayer) {
		if t != nil {
			f.telemetry = t
		}
	}
}

// WithSnapshotStore enables write-through of successful live fetches.
func WithSnapshotStore(store driven.SnapshotStore) FetchOption {
	return func(f *FetchLayer) { f.snapshot = store }
}

// FetchLayer wraps live loaders with per-source circuit breakers, bounded
// retries and an ordered fallback chain.
type FetchLayer struct {
	cfg       domain.BreakerSettings
	live      map[string]driven.SourceLoader
	breakers  map[string]*CircuitBreaker
	fallbacks []driven.SourceLoader
	snapshot  driven.SnapshotStore
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	telemetry driven.Telemetry
}

// NewFetchLayer creates a fetch layer. Loaders reporting Live() get a breaker;
// fallbacks are consulted in order when a live call cannot be made or fails.
func NewFetchLayer(
	cfg domain.BreakerSettings, live []driven.SourceLoader, fallbacks []driven.SourceLoader, opts ...FetchOption,
) *FetchLayer {
	f := &FetchLayer{
		cfg:       cfg,
		live:      make(map[string]driven.SourceLoader, len(live)),
		breakers:  make(map[string]*CircuitBreaker, len(live)),
		fallbacks: fallbacks,
		now:       time.Now,
		sleep:     sleepContext,
		telemetry: driven.NopTelemetry{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cfg.MaxAttempts <= 0 {
		f.cfg.MaxAttempts = 1
	}
	for _, l := range live {
		f.live[l.Name()] = l
		f.breakers[l.Name()] = NewCircuitBreaker(
			l.Name(), cfg.FailureThreshold, cfg.Cooldown.Std(), f.now, f.telemetry,
		)
	}
	return f
}

// Fetch returns the bytes of a resource from the named live source, falling
// back to the snapshot chain when the breaker is open or the source fails.
// An empty or unknown source name reads from the fallback chain only.
//
// Transient upstream errors never escape: they are retried and then replaced
// by fallback data or a *domain.SourceUnavailableError.
func (f *FetchLayer) Fetch(ctx context.Context, source, resourceID string) (*FetchResult, error) {
	loader, ok := f.live[source]
	if !ok {
		return f.fromFallback(ctx, source, resourceID, true)
	}
	breaker := f.breakers[source]

	adm := breaker.admit()
	if adm == admitReject {
		logger.Debug("fetch: %s breaker %s, serving %s from fallback", source, breaker.State(), resourceID)
		return f.fromFallback(ctx, source, resourceID, false)
	}
	probe := adm == admitProbe

	data, err := f.attempt(ctx, loader, breaker, probe, resourceID)
	switch {
	case err == nil:
		breaker.recordSuccess(probe)
		f.writeThrough(ctx, source, resourceID, data)
		return &FetchResult{Data: data, Origin: domain.OriginLive, Source: source}, nil

	case errors.Is(err, domain.ErrCancelled):
		if probe {
			breaker.releaseProbe()
		}
		return nil, err

	case domain.IsPermanent(err):
		// The upstream answered; it is healthy even if the resource is not.
		breaker.recordSuccess(probe)
		return nil, err

	default:
		if probe {
			breaker.recordProbeFailure()
		}
		logger.Warn("fetch: %s failed for %s after retries: %v", source, resourceID, err)
		return f.fromFallback(ctx, source, resourceID, false)
	}
}

// attempt runs up to MaxAttempts calls with exponential backoff.
func (f *FetchLayer) attempt(
	ctx context.Context, loader driven.SourceLoader, breaker *CircuitBreaker, probe bool, resourceID string,
) ([]byte, error) {
	var lastErr error
	for n := 1; n <= f.cfg.MaxAttempts; n++ {
		data, err := f.call(ctx, loader, resourceID)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: fetching %s: %v", domain.ErrCancelled, resourceID, ctx.Err())
		}
		if domain.IsPermanent(err) {
			return nil, err
		}
		lastErr = err

		// Retries only continue while Closed, or for the probe.
		if !probe && !breaker.recordAttemptFailure() {
			break
		}
		if n == f.cfg.MaxAttempts {
			break
		}

		delay := f.backoff(n)
		f.telemetry.Record(driven.EventFetchRetry, map[string]any{
			"source":  loader.Name(),
			"attempt": n,
		})
		if err := f.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: backing off %s: %v", domain.ErrCancelled, resourceID, err)
		}
	}
	return nil, lastErr
}

// call performs one bounded call. Timeouts and untyped errors are transient.
func (f *FetchLayer) call(ctx context.Context, loader driven.SourceLoader, resourceID string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.cfg.CallTimeout.Std())
	defer cancel()

	start := f.now()
	data, err := loader.Fetch(callCtx, resourceID)
	f.telemetry.Record(driven.EventLoadLatency, map[string]any{
		"source":  loader.Name(),
		"seconds": f.now().Sub(start).Seconds(),
	})
	if err == nil {
		return data, nil
	}
	if domain.IsPermanent(err) || errors.Is(err, domain.ErrTransientIO) {
		return nil, err
	}
	return nil, &domain.TransientIOError{Source: loader.Name(), ResourceID: resourceID, Err: err}
}

// backoff returns base * 2^(n-1) plus up to half a base of jitter.
func (f *FetchLayer) backoff(n int) time.Duration {
	base := f.cfg.BackoffBase.Std()
	if base <= 0 {
		return 0
	}
	d := base << (n - 1)
	return d + time.Duration(rand.Int64N(int64(base)/2+1))
}

// fromFallback serves a resource from the first fallback that has it.
func (f *FetchLayer) fromFallback(
	ctx context.Context, source, resourceID string, staticOnly bool,
) (*FetchResult, error) {
	for _, fb := range f.fallbacks {
		data, err := fb.Fetch(ctx, resourceID)
		if err == nil {
			if !staticOnly {
				f.telemetry.Record(driven.EventFallbackServed, map[string]any{
					"source":   source,
					"fallback": fb.Name(),
				})
			}
			return &FetchResult{Data: data, Origin: domain.OriginStatic, Source: fb.Name()}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("fetch: fallback %s failed for %s: %v", fb.Name(), resourceID, err)
		}
	}
	if staticOnly {
		return nil, &domain.NotFoundError{Kind: "resource", ID: resourceID}
	}
	return nil, &domain.SourceUnavailableError{Source: source, ResourceID: resourceID}
}

// writeThrough stores live bytes as the last-known-good snapshot.
func (f *FetchLayer) writeThrough(ctx context.Context, source, resourceID string, data []byte) {
	if f.snapshot == nil {
		return
	}
	if err := f.snapshot.Put(context.WithoutCancel(ctx), source, resourceID, data); err != nil {
		logger.Warn("fetch: snapshot write for %s failed: %v", resourceID, err)
	}
}

// PruneSnapshots deletes the snapshots stored under frameworkID/ whose
// resource IDs are not in keep, and returns how many were removed.
func (f *FetchLayer) PruneSnapshots(ctx context.Context, frameworkID string, keep []string) (int, error) {
	if f.snapshot == nil {
		return 0, nil
	}
	stored, err := f.snapshot.List(ctx, frameworkID+"/")
	if err != nil {
		return 0, fmt.Errorf("listing snapshots of %s: %w", frameworkID, err)
	}

	wanted := make(map[string]struct{}, len(keep))
	for _, rid := range keep {
		wanted[rid] = struct{}{}
	}
	removed := 0
	for _, rid := range stored {
		if _, ok := wanted[rid]; ok {
			continue
		}
		if err := f.snapshot.Delete(ctx, rid); err != nil {
			return removed, fmt.Errorf("deleting snapshot %s: %w", rid, err)
		}
		removed++
	}
	return removed, nil
}

// BreakerStats returns a copy of every breaker's state, sorted by source.
func (f *FetchLayer) BreakerStats() []domain.BreakerStats {
	stats := make([]domain.BreakerStats, 0, len(f.breakers))
	for _, b := range f.breakers {
		stats = append(stats, b.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Source < stats[j].Source })
	return stats
}

// Breaker returns the breaker of a live source, or nil.
func (f *FetchLayer) Breaker(source string) *CircuitBreaker {
	return f.breakers[source]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
