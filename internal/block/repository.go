package block

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/visitor-parking-backend/internal/db"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Block, error)

	// Reserve flips the block from available to reserved. It reports false
	// when no row matched, meaning the block is taken or does not exist.
	Reserve(ctx context.Context, id string) (bool, error)

	// Release returns the block to available.
	Release(ctx context.Context, id string) error

	// HasOverlap checks whether another non-available block of the same spot
	// overlaps [start, end). excludeID is the block being admitted.
	HasOverlap(ctx context.Context, spotID string, start, end time.Time, excludeID string) (bool, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Block, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"bl.id", "bl.spot_id", "s.label", "s.building_id",
		"bl.start_time", "bl.end_time", "bl.base_price", "bl.status",
		"bl.created_at", "bl.updated_at",
	).
		From("public.blocks bl").
		Join("public.spots s ON bl.spot_id = s.id").
		Where(squirrel.Eq{"bl.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get block query failed: %w", err)
	}

	var b Block
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(
		&b.ID, &b.SpotID, &b.SpotLabel, &b.BuildingID,
		&b.StartTime, &b.EndTime, &b.BasePrice, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get block failed: %w", err)
	}
	return &b, nil
}

func (r *pgxRepository) Reserve(ctx context.Context, id string) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.blocks").
		Set("status", StatusReserved).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": StatusAvailable}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build reserve block query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		if db.IsInvalidTextRepresentation(err) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("reserve block failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) Release(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.blocks").
		Set("status", StatusAvailable).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build release block query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("release block failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) HasOverlap(ctx context.Context, spotID string, start, end time.Time, excludeID string) (bool, error) {
	// Same spot, taken, and (start < other.end AND end > other.start).
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	subQuery := psql.Select("1").
		From("public.blocks").
		Where(squirrel.Eq{"spot_id": spotID}).
		Where(squirrel.NotEq{"status": StatusAvailable}).
		Where(squirrel.Lt{"start_time": end}).
		Where(squirrel.Gt{"end_time": start})

	if excludeID != "" {
		subQuery = subQuery.Where(squirrel.NotEq{"id": excludeID})
	}

	sql, args, err := subQuery.ToSql()
	if err != nil {
		return false, fmt.Errorf("build check overlap query failed: %w", err)
	}

	var exists bool
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, "SELECT EXISTS ("+sql+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check overlap failed: %w", err)
	}
	return exists, nil
}
