package storage

import (
	"context"

	"pumpcore/internal/domain"
)

// SnapshotStore provides access to token_snapshots storage.
type SnapshotStore interface {
	// Insert adds a snapshot. Returns ErrDuplicateKey if (address, observed_at) exists.
	Insert(ctx context.Context, s *domain.TokenSnapshot) error

	// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, snapshots []*domain.TokenSnapshot) error

	// GetLatest retrieves the newest snapshot for a token. Returns ErrNotFound if none exist.
	GetLatest(ctx context.Context, address string) (*domain.TokenSnapshot, error)

	// GetByAddress retrieves up to limit snapshots for a token, newest first.
	// A limit <= 0 returns all snapshots.
	GetByAddress(ctx context.Context, address string, limit int) ([]*domain.TokenSnapshot, error)
}

// PriceHistoryStore provides access to price_history storage.
type PriceHistoryStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (token, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetByToken retrieves all points for a token, ordered by timestamp ASC.
	GetByToken(ctx context.Context, token string) ([]*domain.PricePoint, error)

	// GetByTimeRange retrieves points for a token within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, token string, start, end int64) ([]*domain.PricePoint, error)
}
