package services

import (
	"context"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
)

// Ensure GuardedService implements the interface.
var _ driving.QueryService = (*GuardedService)(nil)

// GuardedService applies per-caller rate limits in front of a QueryService.
// The caller identity is read from the context with domain.CallerFrom.
type GuardedService struct {
	next      driving.QueryService
	limiter   *RateLimiter
	telemetry driven.Telemetry
}

// NewGuardedService wraps next with limiter.
func NewGuardedService(next driving.QueryService, limiter *RateLimiter, telemetry driven.Telemetry) *GuardedService {
	if telemetry == nil {
		telemetry = driven.NopTelemetry{}
	}
	return &GuardedService{next: next, limiter: limiter, telemetry: telemetry}
}

func (g *GuardedService) allow(ctx context.Context, class domain.OperationClass) error {
	caller := domain.CallerFrom(ctx)
	if err := g.limiter.Allow(caller, class); err != nil {
		g.telemetry.Record(driven.EventRateLimited, map[string]any{"class": string(class)})
		return err
	}
	return nil
}

// ListFrameworks implements driving.QueryService.
func (g *GuardedService) ListFrameworks(ctx context.Context) ([]domain.Framework, error) {
	if err := g.allow(ctx, domain.ClassGet); err != nil {
		return nil, err
	}
	return g.next.ListFrameworks(ctx)
}

// GetFramework implements driving.QueryService.
func (g *GuardedService) GetFramework(ctx context.Context, id string) (*driving.FrameworkDetail, error) {
	if err := g.allow(ctx, domain.ClassGet); err != nil {
		return nil, err
	}
	return g.next.GetFramework(ctx, id)
}

// GetReference implements driving.QueryService.
func (g *GuardedService) GetReference(ctx context.Context, frameworkID, referenceID string) (*domain.Reference, error) {
	if err := g.allow(ctx, domain.ClassGet); err != nil {
		return nil, err
	}
	return g.next.GetReference(ctx, frameworkID, referenceID)
}

// Search implements driving.QueryService.
func (g *GuardedService) Search(
	ctx context.Context, query string, filters domain.SearchFilters, limit int,
) ([]domain.SearchHit, error) {
	if err := g.allow(ctx, domain.ClassSearch); err != nil {
		return nil, err
	}
	return g.next.Search(ctx, query, filters, limit)
}

// Correlate implements driving.QueryService.
func (g *GuardedService) Correlate(
	ctx context.Context, key domain.ReferenceKey, targetFrameworkID string,
) ([]domain.CorrelationMapping, error) {
	if err := g.allow(ctx, domain.ClassSearch); err != nil {
		return nil, err
	}
	return g.next.Correlate(ctx, key, targetFrameworkID)
}

// FindGaps implements driving.QueryService.
func (g *GuardedService) FindGaps(
	ctx context.Context, sourceFrameworkID string, targetFrameworkIDs []string, threshold domain.Severity,
) ([]domain.Gap, error) {
	if err := g.allow(ctx, domain.ClassSearch); err != nil {
		return nil, err
	}
	return g.next.FindGaps(ctx, sourceFrameworkID, targetFrameworkIDs, threshold)
}

// Refresh implements driving.QueryService.
func (g *GuardedService) Refresh(ctx context.Context, frameworkID string) error {
	if err := g.allow(ctx, domain.ClassAdmin); err != nil {
		return err
	}
	return g.next.Refresh(ctx, frameworkID)
}

// CacheStats implements driving.QueryService.
func (g *GuardedService) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	if err := g.allow(ctx, domain.ClassAdmin); err != nil {
		return domain.CacheStats{}, err
	}
	return g.next.CacheStats(ctx)
}

// BreakerStats implements driving.QueryService.
func (g *GuardedService) BreakerStats(ctx context.Context) ([]domain.BreakerStats, error) {
	if err := g.allow(ctx, domain.ClassAdmin); err != nil {
		return nil, err
	}
	return g.next.BreakerStats(ctx)
}
