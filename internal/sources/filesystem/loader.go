package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// Name is the registry name of the filesystem loader.
const Name = "filesystem"

// Ensure Loader implements the interfaces.
var (
	_ driven.SourceLoader   = (*Loader)(nil)
	_ driven.ChangeNotifier = (*Loader)(nil)
)

// Loader reads framework resources from a directory tree.
type Loader struct {
	root string
}

// New creates a loader rooted at dir.
func New(dir string) (*Loader, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: filesystem root %q: %v", domain.ErrInvalidInput, dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: filesystem root %q: %v", domain.ErrInvalidInput, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: filesystem root %q is not a directory", domain.ErrInvalidInput, dir)
	}
	return &Loader{root: abs}, nil
}

// Name implements driven.SourceLoader.
func (l *Loader) Name() string { return Name }

// Live implements driven.SourceLoader. Disk reads can fail transiently.
func (l *Loader) Live() bool { return true }

// Root returns the absolute root directory.
func (l *Loader) Root() string { return l.root }

// Fetch implements driven.SourceLoader.
func (l *Loader) Fetch(ctx context.Context, resourceID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := l.path(resourceID)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, &domain.NotFoundError{Kind: "resource", ID: resourceID}
	case err != nil:
		return nil, &domain.TransientIOError{Source: Name, ResourceID: resourceID, Err: err}
	case info.IsDir():
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: "path is a directory"}
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Kind: "resource", ID: resourceID}
		}
		return nil, &domain.TransientIOError{Source: Name, ResourceID: resourceID, Err: err}
	}
	return data, nil
}

// path maps a resource ID onto the directory tree, refusing escapes.
func (l *Loader) path(resourceID string) (string, error) {
	fw, rel, ok := strings.Cut(resourceID, "/")
	if !ok || fw == "" || rel == "" || !fs.ValidPath(resourceID) || path.Clean(resourceID) != resourceID {
		return "", fmt.Errorf("%w: resource id %q", domain.ErrInvalidInput, resourceID)
	}
	return filepath.Join(l.root, filepath.FromSlash(resourceID)), nil
}

// resourceID maps an absolute path back to a resource ID. It returns ""
// for paths outside a framework directory.
func (l *Loader) resourceID(p string) string {
	rel, err := filepath.Rel(l.root, p)
	if err != nil {
		return ""
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") || !strings.Contains(rel, "/") {
		return ""
	}
	return rel
}
