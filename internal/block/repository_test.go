package block

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/visitor-parking-backend/internal/db"
	"github.com/nekogravitycat/visitor-parking-backend/internal/db/dbtest"
)

func TestReserveIsExclusive(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	seed := dbtest.SeedBlock(t, pool, start, start.Add(2*time.Hour), 5000)

	repo := NewPgxRepository(pool)
	tx := db.NewTransactor(pool)

	const attempts = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tx.WithTx(ctx, func(txCtx context.Context) error {
				ok, err := repo.Reserve(txCtx, seed.BlockID)
				if err == nil && ok {
					wins.Add(1)
				}
				return err
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	b, err := repo.GetByID(ctx, seed.BlockID)
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, b.Status)
	assert.Equal(t, seed.BuildingID, b.BuildingID)
	assert.Equal(t, "V-01", b.SpotLabel)
}

func TestReserveRolledBackWithTransaction(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	seed := dbtest.SeedBlock(t, pool, start, start.Add(time.Hour), 5000)

	repo := NewPgxRepository(pool)
	err := db.NewTransactor(pool).WithTx(ctx, func(txCtx context.Context) error {
		ok, err := repo.Reserve(txCtx, seed.BlockID)
		require.NoError(t, err)
		require.True(t, ok)
		return ErrNotFound
	})
	require.ErrorIs(t, err, ErrNotFound)

	b, err := repo.GetByID(ctx, seed.BlockID)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, b.Status)
}

func TestHasOverlap(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()
	day := time.Now().Add(72 * time.Hour).Truncate(24 * time.Hour)

	// A: 10:00-21:00 reserved. B: 12:00-14:00 available on the same spot.
	seed := dbtest.SeedBlock(t, pool, day.Add(12*time.Hour), day.Add(14*time.Hour), 3000)
	dbtest.InsertBlock(t, pool, seed.SpotID, day.Add(10*time.Hour), day.Add(21*time.Hour), 9000, string(StatusReserved))

	repo := NewPgxRepository(pool)

	overlap, err := repo.HasOverlap(ctx, seed.SpotID, day.Add(12*time.Hour), day.Add(14*time.Hour), seed.BlockID)
	require.NoError(t, err)
	assert.True(t, overlap)

	overlap, err = repo.HasOverlap(ctx, seed.SpotID, day.Add(21*time.Hour), day.Add(23*time.Hour), "")
	require.NoError(t, err)
	assert.False(t, overlap, "touching windows do not overlap")
}

func TestGetByIDMissing(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := NewPgxRepository(pool)

	_, err := repo.GetByID(context.Background(), "3f1c7a52-2b1e-4d4a-9a60-1d2f0f6b7c11")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}
