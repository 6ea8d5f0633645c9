// Package dbtest provides Postgres fixtures for repository tests. Tests using
// it are skipped unless TEST_DB_DSN points at a disposable database.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/nekogravitycat/visitor-parking-backend/internal/db/migrations"
)

const testDBLockID int64 = 472019385

// NewPool connects to TEST_DB_DSN, applies migrations and truncates all
// domain tables. The pool is closed on test cleanup.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping Postgres test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.MaxConns = 16

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skipping Postgres test: %v", err)
	}
	t.Cleanup(pool.Close)

	lock(t, pool)

	if err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE commissions, payouts, domain_events, payments, bookings,
		blocklist_entries, pricing_rules, blocks, spots, buildings CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

// Seed holds the ids created by SeedBlock.
type Seed struct {
	BuildingID string
	SpotID     string
	BlockID    string
}

// SeedBlock inserts a building, a spot and one available block.
func SeedBlock(t *testing.T, pool *pgxpool.Pool, start, end time.Time, basePrice int64) Seed {
	t.Helper()
	ctx := context.Background()

	var s Seed
	if err := pool.QueryRow(ctx, `INSERT INTO buildings (name) VALUES ('Tower A') RETURNING id`).Scan(&s.BuildingID); err != nil {
		t.Fatalf("insert building: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO spots (building_id, label) VALUES ($1, 'V-01') RETURNING id`, s.BuildingID).Scan(&s.SpotID); err != nil {
		t.Fatalf("insert spot: %v", err)
	}
	s.BlockID = InsertBlock(t, pool, s.SpotID, start, end, basePrice, "available")
	return s
}

// InsertBlock adds another block to an existing spot.
func InsertBlock(t *testing.T, pool *pgxpool.Pool, spotID string, start, end time.Time, basePrice int64, status string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO blocks (spot_id, start_time, end_time, base_price, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`, spotID, start, end, basePrice, status).Scan(&id)
	if err != nil {
		t.Fatalf("insert block: %v", err)
	}
	return id
}

func lock(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire lock conn: %v", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, testDBLockID); err != nil {
		conn.Release()
		t.Fatalf("acquire test lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, testDBLockID)
		conn.Release()
	})
}
