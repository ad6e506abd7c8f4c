package driven

import (
	"github.com/custodia-labs/govlens/internal/core/domain"
)

// Normaliser turns the raw bytes of one resource into References.
// Each normaliser handles specific file extensions (e.g. .md, .yaml).
type Normaliser interface {
	// Extensions returns the file extensions this normaliser handles.
	Extensions() []string

	// Normalise parses a resource. A resource-level parse failure returns a
	// *domain.MalformedContentError. Individual invalid entries inside an
	// otherwise valid resource are returned in NormaliseResult.Failed.
	Normalise(frameworkID, resourceID string, data []byte) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
type NormaliseResult struct {
	References []domain.Reference

	// Failed lists entry identifiers ("resource#entry") that were skipped.
	Failed []string
}
