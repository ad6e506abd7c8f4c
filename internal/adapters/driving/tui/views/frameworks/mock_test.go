package frameworks

import (
	"context"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
)

// MockQueryService implements driving.QueryService for testing.
type MockQueryService struct {
	ListFrameworksFunc func(ctx context.Context) ([]domain.Framework, error)
	GetFrameworkFunc   func(ctx context.Context, id string) (*driving.FrameworkDetail, error)
	GetReferenceFunc   func(ctx context.Context, frameworkID, referenceID string) (*domain.Reference, error)
	SearchFunc         func(ctx context.Context, query string, filters domain.SearchFilters, limit int) ([]domain.SearchHit, error)
	CorrelateFunc      func(ctx context.Context, key domain.ReferenceKey, target string) ([]domain.CorrelationMapping, error)
	RefreshFunc        func(ctx context.Context, frameworkID string) error
}

func (m *MockQueryService) ListFrameworks(ctx context.Context) ([]domain.Framework, error) {
	if m.ListFrameworksFunc != nil {
		return m.ListFrameworksFunc(ctx)
	}
	return []domain.Framework{}, nil
}

func (m *MockQueryService) GetFramework(ctx context.Context, id string) (*driving.FrameworkDetail, error) {
	if m.GetFrameworkFunc != nil {
		return m.GetFrameworkFunc(ctx, id)
	}
	return nil, &domain.NotFoundError{Kind: "framework", ID: id}
}

func (m *MockQueryService) GetReference(
	ctx context.Context, frameworkID, referenceID string,
) (*domain.Reference, error) {
	if m.GetReferenceFunc != nil {
		return m.GetReferenceFunc(ctx, frameworkID, referenceID)
	}
	return nil, &domain.NotFoundError{Kind: "reference", ID: frameworkID + ":" + referenceID}
}

func (m *MockQueryService) Search(
	ctx context.Context, query string, filters domain.SearchFilters, limit int,
) ([]domain.SearchHit, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, filters, limit)
	}
	return []domain.SearchHit{}, nil
}

func (m *MockQueryService) Correlate(
	ctx context.Context, key domain.ReferenceKey, target string,
) ([]domain.CorrelationMapping, error) {
	if m.CorrelateFunc != nil {
		return m.CorrelateFunc(ctx, key, target)
	}
	return nil, nil
}

func (m *MockQueryService) FindGaps(
	_ context.Context, _ string, _ []string, _ domain.Severity,
) ([]domain.Gap, error) {
	return nil, nil
}

func (m *MockQueryService) Refresh(ctx context.Context, frameworkID string) error {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, frameworkID)
	}
	return nil
}

func (m *MockQueryService) CacheStats(_ context.Context) (domain.CacheStats, error) {
	return domain.CacheStats{}, nil
}

func (m *MockQueryService) BreakerStats(_ context.Context) ([]domain.BreakerStats, error) {
	return nil, nil
}
