// Package memory provides in-memory implementations of driven ports, used
// when persistence is disabled and in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

type snapshot struct {
	source    string
	data      []byte
	fetchedAt time.Time
}

// SnapshotStore is an in-memory implementation of driven.SnapshotStore.
type SnapshotStore struct {
	mu    sync.RWMutex
	items map[string]snapshot
	now   func() time.Time
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		items: make(map[string]snapshot),
		now:   time.Now,
	}
}

// Put stores or replaces the bytes of a resource.
func (s *SnapshotStore) Put(_ context.Context, source, resourceID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[resourceID] = snapshot{
		source:    source,
		data:      append([]byte(nil), data...),
		fetchedAt: s.now(),
	}
	return nil
}

// Get returns the stored bytes and when they were fetched.
func (s *SnapshotStore) Get(_ context.Context, resourceID string) ([]byte, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[resourceID]
	if !ok {
		return nil, time.Time{}, &domain.NotFoundError{Kind: "snapshot", ID: resourceID}
	}
	return append([]byte(nil), item.data...), item.fetchedAt, nil
}

// List returns the stored resource IDs with the given prefix, sorted.
func (s *SnapshotStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id := range s.items {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a resource.
func (s *SnapshotStore) Delete(_ context.Context, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, resourceID)
	return nil
}
