package driven

import (
	"context"
)

// SourceLoader fetches raw bytes for a named resource from one upstream.
// Resource IDs have the form "<framework-id>/<path>" and are identical across
// loaders, so any live resource can be looked up again in a fallback.
//
// Fetch fails with:
//   - domain.ErrNotFound when the resource does not exist
//   - *domain.TransientIOError for timeouts and connection failures (retryable)
//   - *domain.MalformedContentError when the upstream returned unusable bytes
type SourceLoader interface {
	// Name returns the registry name of the loader.
	Name() string

	// Live reports whether the loader performs network or disk I/O
	// that may fail transiently. Static bundles return false.
	Live() bool

	// Fetch returns the raw bytes of a resource.
	Fetch(ctx context.Context, resourceID string) ([]byte, error)
}

// ChangeNotifier is implemented by loaders that can report upstream changes.
type ChangeNotifier interface {
	// Watch calls onChange with the resource ID of every changed resource
	// until the context is cancelled.
	Watch(ctx context.Context, onChange func(resourceID string)) error
}
