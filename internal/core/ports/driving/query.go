package driving

import (
	"context"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

// FrameworkDetail is a framework together with its loaded references.
type FrameworkDetail struct {
	Framework  domain.Framework
	References []domain.Reference
}

// QueryService is the read-only API exposed to transports.
type QueryService interface {
	// ListFrameworks returns metadata for every available framework.
	ListFrameworks(ctx context.Context) ([]domain.Framework, error)

	// GetFramework returns a framework and its references.
	GetFramework(ctx context.Context, id string) (*FrameworkDetail, error)

	// GetReference returns one reference.
	GetReference(ctx context.Context, frameworkID, referenceID string) (*domain.Reference, error)

	// Search runs a keyword search. A limit <= 0 uses the configured default.
	Search(ctx context.Context, query string, filters domain.SearchFilters, limit int) ([]domain.SearchHit, error)

	// Correlate maps one reference onto every reference of a target framework.
	Correlate(ctx context.Context, key domain.ReferenceKey, targetFrameworkID string) ([]domain.CorrelationMapping, error)

	// FindGaps lists source references lacking a related mapping in each target.
	FindGaps(
		ctx context.Context, sourceFrameworkID string, targetFrameworkIDs []string, threshold domain.Severity,
	) ([]domain.Gap, error)

	// Refresh drops cached data for a framework (or all when id is empty) and reloads it.
	Refresh(ctx context.Context, frameworkID string) error

	// CacheStats returns cache counters.
	CacheStats(ctx context.Context) (domain.CacheStats, error)

	// BreakerStats returns the breaker state of every live source.
	BreakerStats(ctx context.Context) ([]domain.BreakerStats, error)
}
