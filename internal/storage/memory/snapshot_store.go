package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pumpcore/internal/domain"
	"pumpcore/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenSnapshot // keyed by (address, observed_at)
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.TokenSnapshot),
	}
}

func snapshotKey(address string, observedAt int64) string {
	return fmt.Sprintf("%s|%d", address, observedAt)
}

// Insert adds a snapshot. Returns ErrDuplicateKey if (address, observed_at) exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.TokenSnapshot) error {
	return s.InsertBulk(ctx, []*domain.TokenSnapshot{snap})
}

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.TokenSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.Info.Address == "" {
			return storage.ErrInvalidInput
		}
		key := snapshotKey(snap.Info.Address, snap.ObservedAt)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	now := time.Now().UnixMilli()
	for _, snap := range snapshots {
		snapCopy := *snap
		if snapCopy.CreatedAt == 0 {
			snapCopy.CreatedAt = now
		}
		s.data[snapshotKey(snap.Info.Address, snap.ObservedAt)] = &snapCopy
	}

	return nil
}

// GetLatest retrieves the newest snapshot for a token.
func (s *SnapshotStore) GetLatest(ctx context.Context, address string) (*domain.TokenSnapshot, error) {
	result, err := s.GetByAddress(ctx, address, 1)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}
	return result[0], nil
}

// GetByAddress retrieves up to limit snapshots for a token, newest first.
func (s *SnapshotStore) GetByAddress(_ context.Context, address string, limit int) ([]*domain.TokenSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenSnapshot
	for _, snap := range s.data {
		if snap.Info.Address == address {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt > result[j].ObservedAt
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
