package snapshot

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSnapshot is returned by Load when the store holds no snapshot.
var ErrNoSnapshot = errors.New("no snapshot in store")

// Store persists snapshots. Save replaces any prior snapshot wholesale;
// implementations must make the replacement atomic so a failed save never
// leaves the store without a readable snapshot.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, ErrNoSnapshot
	}
	return s.snap, nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	return nil
}
