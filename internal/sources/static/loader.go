package static

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// Name is the registry name of the static loader.
const Name = "static"

// Ensure Loader implements the interfaces.
var (
	_ driven.SourceLoader    = (*Loader)(nil)
	_ driven.CatalogProvider = (*Loader)(nil)
)

// Loader serves resources from an fs.FS laid out like the embedded bundle.
type Loader struct {
	fsys    fs.FS
	catalog []domain.FrameworkDescriptor
}

// Default returns a loader over the embedded bundle.
func Default() (*Loader, error) {
	sub, err := fs.Sub(bundleFS, "bundle")
	if err != nil {
		return nil, err
	}
	return New(sub)
}

// New creates a loader over fsys. fsys must contain index.yaml.
func New(fsys fs.FS) (*Loader, error) {
	data, err := fs.ReadFile(fsys, "index.yaml")
	if err != nil {
		return nil, fmt.Errorf("read bundle index: %w", err)
	}
	catalog, err := parseCatalog(data)
	if err != nil {
		return nil, err
	}
	return &Loader{fsys: fsys, catalog: catalog}, nil
}

// Name implements driven.SourceLoader.
func (l *Loader) Name() string { return Name }

// Live implements driven.SourceLoader.
func (l *Loader) Live() bool { return false }

// Fetch implements driven.SourceLoader.
func (l *Loader) Fetch(ctx context.Context, resourceID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := resourcePath(resourceID)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Kind: "resource", ID: resourceID}
		}
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: err.Error()}
	}
	return data, nil
}

// Has reports whether a resource is bundled.
func (l *Loader) Has(resourceID string) bool {
	p, err := resourcePath(resourceID)
	if err != nil {
		return false
	}
	_, err = fs.Stat(l.fsys, p)
	return err == nil
}

// Catalog implements driven.CatalogProvider.
func (l *Loader) Catalog() []domain.FrameworkDescriptor {
	out := make([]domain.FrameworkDescriptor, len(l.catalog))
	for i, d := range l.catalog {
		d.Resources = append([]string(nil), d.Resources...)
		out[i] = d
	}
	return out
}

// Mappings loads the curated mapping tables under mappings/.
func (l *Loader) Mappings() (*MappingTable, error) {
	return LoadMappings(l.fsys, "mappings")
}

// resourcePath validates a "<framework>/<path>" resource ID as an fs path.
func resourcePath(resourceID string) (string, error) {
	fw, rel, ok := strings.Cut(resourceID, "/")
	if !ok || fw == "" || rel == "" || !fs.ValidPath(resourceID) || path.Clean(resourceID) != resourceID {
		return "", fmt.Errorf("%w: resource id %q", domain.ErrInvalidInput, resourceID)
	}
	return resourceID, nil
}
