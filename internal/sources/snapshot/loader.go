// Package snapshot exposes the snapshot store as a fallback SourceLoader,
// serving the last bytes successfully fetched from a live source.
package snapshot

import (
	"context"
	"time"

	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/logger"
)

// Name is the registry name of the snapshot loader.
const Name = "snapshot"

// Ensure Loader implements the interface.
var _ driven.SourceLoader = (*Loader)(nil)

// Loader reads from a SnapshotStore.
type Loader struct {
	store driven.SnapshotStore
	now   func() time.Time
}

// New creates a loader over store.
func New(store driven.SnapshotStore) *Loader {
	return &Loader{store: store, now: time.Now}
}

// Name implements driven.SourceLoader.
func (l *Loader) Name() string { return Name }

// Live implements driven.SourceLoader.
func (l *Loader) Live() bool { return false }

// Fetch implements driven.SourceLoader. A missing snapshot is
// domain.ErrNotFound so the next fallback is tried.
func (l *Loader) Fetch(ctx context.Context, resourceID string) ([]byte, error) {
	data, fetchedAt, err := l.store.Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	logger.Debug("snapshot: serving %s fetched %s ago", resourceID, l.now().Sub(fetchedAt).Round(time.Second))
	return data, nil
}
