package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pumpcore/internal/domain"
	"pumpcore/internal/observability"
	"pumpcore/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const insertSnapshotQuery = `
	INSERT INTO token_snapshots (
		address, observed_at, creator, name, symbol, description,
		supply, reserve, k, created_date, created_at_unix,
		total_buy_volume, total_sell_volume, holder_count, price, image_url
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`

const selectSnapshotColumns = `
	SELECT address, observed_at, creator, name, symbol, description,
		supply, reserve, k, created_date, created_at_unix,
		total_buy_volume, total_sell_volume, holder_count, price, image_url, created_at
	FROM token_snapshots
`

// Insert adds a snapshot. Returns ErrDuplicateKey if (address, observed_at) exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.TokenSnapshot) (err error) {
	defer recordQuery("insert_snapshot", time.Now(), &err)

	if snap == nil || snap.Info.Address == "" {
		return storage.ErrInvalidInput
	}

	_, err = s.pool.Exec(ctx, insertSnapshotQuery, snapshotArgs(snap)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token snapshot: %w", err)
	}
	return nil
}

// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.TokenSnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}
	defer recordQuery("insert_snapshots", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, snap := range snapshots {
		if snap == nil || snap.Info.Address == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertSnapshotQuery, snapshotArgs(snap)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert token snapshot in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetLatest retrieves the newest snapshot for a token. Returns ErrNotFound if none exist.
func (s *SnapshotStore) GetLatest(ctx context.Context, address string) (snap *domain.TokenSnapshot, err error) {
	defer recordQuery("get_latest_snapshot", time.Now(), &err)

	row := s.pool.QueryRow(ctx, selectSnapshotColumns+`
		WHERE address = $1
		ORDER BY observed_at DESC
		LIMIT 1
	`, address)

	snap, err = scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest token snapshot: %w", err)
	}
	return snap, nil
}

// GetByAddress retrieves up to limit snapshots for a token, newest first.
func (s *SnapshotStore) GetByAddress(ctx context.Context, address string, limit int) (result []*domain.TokenSnapshot, err error) {
	defer recordQuery("get_snapshots", time.Now(), &err)

	query := selectSnapshotColumns + `
		WHERE address = $1
		ORDER BY observed_at DESC
	`
	args := []any{address}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query token snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token snapshot: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token snapshots: %w", err)
	}

	return result, nil
}

func snapshotArgs(snap *domain.TokenSnapshot) []any {
	info := snap.Info
	return []any{
		info.Address,
		snap.ObservedAt,
		info.Creator,
		info.Name,
		info.Symbol,
		info.Description,
		info.Supply,
		info.Reserve,
		info.K,
		info.CreatedAt,
		info.CreatedAtUnix,
		info.TotalBuyVolume,
		info.TotalSellVolume,
		info.HolderCount,
		info.Price,
		info.ImageURL,
	}
}

// scanSnapshot scans a single row into TokenSnapshot.
func scanSnapshot(row pgx.Row) (*domain.TokenSnapshot, error) {
	var snap domain.TokenSnapshot
	info := &snap.Info

	err := row.Scan(
		&info.Address,
		&snap.ObservedAt,
		&info.Creator,
		&info.Name,
		&info.Symbol,
		&info.Description,
		&info.Supply,
		&info.Reserve,
		&info.K,
		&info.CreatedAt,
		&info.CreatedAtUnix,
		&info.TotalBuyVolume,
		&info.TotalSellVolume,
		&info.HolderCount,
		&info.Price,
		&info.ImageURL,
		&snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &snap, nil
}

func recordQuery(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), *err)
}
