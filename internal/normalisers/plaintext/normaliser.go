package plaintext

import (
	"path"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text resources. The whole file becomes one
// Reference named after the file.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".txt", ".text"}
}

// Normalise converts a text resource into a single Reference.
func (n *Normaliser) Normalise(frameworkID, resourceID string, data []byte) (*driven.NormaliseResult, error) {
	if !utf8.Valid(data) {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: "not valid UTF-8"}
	}
	content := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if content == "" {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: "empty file"}
	}

	ref := domain.Reference{
		FrameworkID: frameworkID,
		ID:          stem(resourceID),
		Title:       extractTitle(resourceID),
		Content:     content,
	}
	return &driven.NormaliseResult{References: []domain.Reference{ref}}, nil
}

func stem(resourceID string) string {
	name := path.Base(resourceID)
	return strings.TrimSuffix(name, path.Ext(name))
}

// extractTitle extracts a human-readable title from a resource ID.
func extractTitle(resourceID string) string {
	title := stem(resourceID)

	// Replace underscores and dashes with spaces
	title = strings.ReplaceAll(title, "_", " ")
	title = strings.ReplaceAll(title, "-", " ")

	return title
}
