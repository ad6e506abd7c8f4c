package mcp

import (
	"context"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
// It records the caller and arguments of the last call.
type mockQueryService struct {
	frameworks []domain.Framework
	detail     *driving.FrameworkDetail
	reference  *domain.Reference
	hits       []domain.SearchHit
	mappings   []domain.CorrelationMapping
	gaps       []domain.Gap
	cache      domain.CacheStats
	breakers   []domain.BreakerStats
	err        error

	lastCaller    string
	lastQuery     string
	lastFilters   domain.SearchFilters
	lastLimit     int
	lastKey       domain.ReferenceKey
	lastTarget    string
	lastTargets   []string
	lastThreshold domain.Severity
	lastID        string
}

func (m *mockQueryService) ListFrameworks(ctx context.Context) ([]domain.Framework, error) {
	m.lastCaller = domain.CallerFrom(ctx)
	return m.frameworks, m.err
}

func (m *mockQueryService) GetFramework(ctx context.Context, id string) (*driving.FrameworkDetail, error) {
	m.lastCaller = domain.CallerFrom(ctx)
	m.lastID = id
	return m.detail, m.err
}

func (m *mockQueryService) GetReference(ctx context.Context, fw, ref string) (*domain.Reference, error) {
	m.lastCaller = domain.CallerFrom(ctx)
	m.lastKey = domain.ReferenceKey{FrameworkID: fw, ReferenceID: ref}
	return m.reference, m.err
}

func (m *mockQueryService) Search(
	ctx context.Context, query string, filters domain.SearchFilters, limit int,
) ([]domain.SearchHit, error) {
	m.lastCaller = domain.CallerFrom(ctx)
	m.lastQuery = query
	m.lastFilters = filters
	m.lastLimit = limit
	return m.hits, m.err
}

func (m *mockQueryService) Correlate(
	ctx context.Context, key domain.ReferenceKey, target string,
) ([]domain.CorrelationMapping, error) {
	m.lastCaller = domain.CallerFrom(ctx)
	m.lastKey = key
	m.lastTarget = target
	return m.mappings, m.err
}

func (m *mockQueryService) FindGaps(
	ctx context.Context, source string, targets []string, threshold domain.Severity,
) ([]domain.Gap, error) {
	m.lastCaller = domain.CallerFrom(ctx)
	m.lastID = source
	m.lastTargets = targets
	m.lastThreshold = threshold
	return m.gaps, m.err
}

func (m *mockQueryService) Refresh(ctx context.Context, id string) error {
	m.lastCaller = domain.CallerFrom(ctx)
	m.lastID = id
	return m.err
}

func (m *mockQueryService) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	m.lastCaller = domain.CallerFrom(ctx)
	return m.cache, m.err
}

func (m *mockQueryService) BreakerStats(ctx context.Context) ([]domain.BreakerStats, error) {
	m.lastCaller = domain.CallerFrom(ctx)
	return m.breakers, m.err
}
