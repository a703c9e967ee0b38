package clickhouse

import (
	"context"
	"fmt"
	"time"

	"pumpcore/internal/domain"
	"pumpcore/internal/observability"
	"pumpcore/internal/storage"
)

// PriceHistoryStore implements storage.PriceHistoryStore using ClickHouse.
type PriceHistoryStore struct {
	conn *Conn
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(conn *Conn) *PriceHistoryStore {
	return &PriceHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (token, timestamp_ms).
// MergeTree does not enforce uniqueness, so duplicates are checked before the insert.
func (s *PriceHistoryStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) (err error) {
	if len(points) == 0 {
		return nil
	}
	defer recordQuery("insert_price_history", time.Now(), &err)

	type key struct {
		token       string
		timestampMs int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Token == "" || p.TimestampMs < 0 {
			return storage.ErrInvalidInput
		}
		k := key{p.Token, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, p.Token, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_history (token, timestamp_ms, price, source)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.Token, uint64(p.TimestampMs), p.Price, string(p.Source)); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves all points for a token, ordered by timestamp ASC.
func (s *PriceHistoryStore) GetByToken(ctx context.Context, token string) (points []*domain.PricePoint, err error) {
	defer recordQuery("get_price_history", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT token, timestamp_ms, price, source
		FROM price_history
		WHERE token = ?
		ORDER BY timestamp_ms ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanPriceHistory(rows)
}

// GetByTimeRange retrieves points for a token within [start, end] (inclusive).
func (s *PriceHistoryStore) GetByTimeRange(ctx context.Context, token string, start, end int64) (points []*domain.PricePoint, err error) {
	defer recordQuery("get_price_history_range", time.Now(), &err)

	if start < 0 {
		start = 0
	}
	if end < start {
		return nil, nil
	}

	rows, err := s.conn.Query(ctx, `
		SELECT token, timestamp_ms, price, source
		FROM price_history
		WHERE token = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`, token, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceHistory(rows)
}

// exists checks if a point with the given key exists.
func (s *PriceHistoryStore) exists(ctx context.Context, token string, timestampMs int64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM price_history
		WHERE token = ? AND timestamp_ms = ?
	`, token, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanPriceHistory(rows chRows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	for rows.Next() {
		var p domain.PricePoint
		var timestampMs uint64
		var source string

		if err := rows.Scan(&p.Token, &timestampMs, &p.Price, &source); err != nil {
			return nil, fmt.Errorf("scan price history row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.Source = domain.PriceSource(source)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history rows: %w", err)
	}

	return points, nil
}

func recordQuery(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("clickhouse", operation, time.Since(start).Seconds(), *err)
}
