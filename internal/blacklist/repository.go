package blacklist

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/visitor-parking-backend/internal/db"
)

type Repository interface {
	// FindMatches returns active entries scoped globally or to buildingID
	// that match any non-empty field of the probe.
	FindMatches(ctx context.Context, buildingID string, probe Probe) ([]Match, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) FindMatches(ctx context.Context, buildingID string, probe Probe) ([]Match, error) {
	if probe.Empty() {
		return nil, nil
	}

	fields := squirrel.Or{}
	if probe.Email != "" {
		fields = append(fields, squirrel.Eq{"lower(email)": probe.Email})
	}
	if probe.IDHash != "" {
		fields = append(fields, squirrel.Eq{"id_hash": probe.IDHash})
	}
	if probe.Plate != "" {
		fields = append(fields, squirrel.Eq{"plate": probe.Plate})
	}

	scope := squirrel.Or{squirrel.Eq{"building_id": nil}}
	if buildingID != "" {
		scope = append(scope, squirrel.Eq{"building_id": buildingID})
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "building_id IS NULL", "reason").
		From("public.blocklist_entries").
		Where(squirrel.Eq{"active": true}).
		Where(scope).
		Where(fields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find blocklist matches query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find blocklist matches failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.EntryID, &m.Global, &m.Reason); err != nil {
			return nil, fmt.Errorf("scan blocklist match failed: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocklist matches failed: %w", err)
	}
	return matches, nil
}
