package driven

import (
	"context"
	"time"
)

// SnapshotStore persists the last successfully fetched bytes of live resources.
// It backs the fallback path when a live source is unavailable.
type SnapshotStore interface {
	// Put stores or replaces the bytes of a resource.
	Put(ctx context.Context, source, resourceID string, data []byte) error

	// Get returns the stored bytes and when they were fetched.
	// Returns domain.ErrNotFound if the resource was never stored.
	Get(ctx context.Context, resourceID string) ([]byte, time.Time, error)

	// List returns the stored resource IDs with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes a resource. Deleting a missing resource is not an error.
	Delete(ctx context.Context, resourceID string) error
}
