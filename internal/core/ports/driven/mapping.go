package driven

import (
	"github.com/custodia-labs/govlens/internal/core/domain"
)

// MappingTable provides curated cross-framework mappings.
type MappingTable interface {
	// Lookup returns the curated strength from source to target.
	// Bidirectional entries also match in reverse.
	Lookup(source, target domain.ReferenceKey) (float64, bool)
}

// CatalogProvider supplies framework descriptors.
type CatalogProvider interface {
	Catalog() []domain.FrameworkDescriptor
}
