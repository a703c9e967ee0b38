package clickhouse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcore/internal/domain"
	"pumpcore/internal/storage"
	chstore "pumpcore/internal/storage/clickhouse"
)

func TestPriceHistoryStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewPriceHistoryStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, nil))

	points := []*domain.PricePoint{
		{Token: "0xA", TimestampMs: 2000, Price: 0.6, Source: domain.PriceSourceObserved},
		{Token: "0xA", TimestampMs: 1000, Price: 0.5, Source: domain.PriceSourceObserved},
		{Token: "0xB", TimestampMs: 1000, Price: 2.0, Source: domain.PriceSourceObserved},
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByToken(ctx, "0xA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, 0.5, got[0].Price)
	assert.Equal(t, domain.PriceSourceObserved, got[0].Source)
	assert.Equal(t, int64(2000), got[1].TimestampMs)
}

func TestPriceHistoryStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewPriceHistoryStore(conn)
	ctx := context.Background()

	points := []*domain.PricePoint{{Token: "0xDup", TimestampMs: 1000, Price: 1}}
	require.NoError(t, store.InsertBulk(ctx, points))

	err := store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	intra := []*domain.PricePoint{
		{Token: "0xDup2", TimestampMs: 1, Price: 1},
		{Token: "0xDup2", TimestampMs: 1, Price: 2},
	}
	assert.ErrorIs(t, store.InsertBulk(ctx, intra), storage.ErrDuplicateKey)

	got, err := store.GetByToken(ctx, "0xDup2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPriceHistoryStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewPriceHistoryStore(conn)
	ctx := context.Background()

	var points []*domain.PricePoint
	for i := int64(1); i <= 5; i++ {
		points = append(points, &domain.PricePoint{Token: "0xR", TimestampMs: i * 1000, Price: float64(i)})
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByTimeRange(ctx, "0xR", 2000, 4000)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 2.0, got[0].Price)
	assert.Equal(t, 4.0, got[2].Price)
}
