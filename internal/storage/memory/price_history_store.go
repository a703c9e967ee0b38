package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pumpcore/internal/domain"
	"pumpcore/internal/storage"
)

// PriceHistoryStore is an in-memory implementation of storage.PriceHistoryStore.
type PriceHistoryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PricePoint // keyed by (token, timestamp_ms)
}

// NewPriceHistoryStore creates a new in-memory price history store.
func NewPriceHistoryStore() *PriceHistoryStore {
	return &PriceHistoryStore{
		data: make(map[string]*domain.PricePoint),
	}
}

func priceKey(token string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", token, timestampMs)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *PriceHistoryStore) InsertBulk(_ context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Token == "" {
			return storage.ErrInvalidInput
		}
		key := priceKey(p.Token, p.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.data[priceKey(p.Token, p.TimestampMs)] = &pointCopy
	}

	return nil
}

// GetByToken retrieves all points for a token, ordered by timestamp ASC.
func (s *PriceHistoryStore) GetByToken(_ context.Context, token string) ([]*domain.PricePoint, error) {
	return s.filter(token, func(*domain.PricePoint) bool { return true }), nil
}

// GetByTimeRange retrieves points for a token within [start, end] (inclusive).
func (s *PriceHistoryStore) GetByTimeRange(_ context.Context, token string, start, end int64) ([]*domain.PricePoint, error) {
	return s.filter(token, func(p *domain.PricePoint) bool {
		return p.TimestampMs >= start && p.TimestampMs <= end
	}), nil
}

func (s *PriceHistoryStore) filter(token string, keep func(*domain.PricePoint) bool) []*domain.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricePoint
	for _, p := range s.data {
		if p.Token == token && keep(p) {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result
}

var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)
