package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/visitor-parking-backend/internal/db"
)

// RuleStore reads pricing rules. The core never writes them.
type RuleStore interface {
	// FindActive returns active rules of the building whose window overlaps
	// [start, end), ordered by priority descending then id ascending.
	FindActive(ctx context.Context, buildingID string, start, end time.Time) ([]Rule, error)
}

type pgxRuleStore struct {
	pool *pgxpool.Pool
}

func NewPgxRuleStore(pool *pgxpool.Pool) RuleStore {
	return &pgxRuleStore{pool: pool}
}

func (s *pgxRuleStore) FindActive(ctx context.Context, buildingID string, start, end time.Time) ([]Rule, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "building_id", "name", "priority", "multiplier::float8", "starts_at", "ends_at",
	).
		From("public.pricing_rules").
		Where(squirrel.Eq{"building_id": buildingID, "active": true}).
		Where(squirrel.Lt{"starts_at": end}).
		Where(squirrel.Gt{"ends_at": start}).
		OrderBy("priority DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find pricing rules query failed: %w", err)
	}

	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find pricing rules failed: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ID, &r.BuildingID, &r.Name, &r.Priority, &r.Multiplier, &r.StartsAt, &r.EndsAt); err != nil {
			return nil, fmt.Errorf("scan pricing rule failed: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing rules failed: %w", err)
	}
	return rules, nil
}
