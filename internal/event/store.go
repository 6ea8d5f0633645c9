package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/visitor-parking-backend/internal/db"
)

type pgxStore struct {
	pool *pgxpool.Pool
}

// NewPgxStore appends events to the domain_events table.
func NewPgxStore(pool *pgxpool.Pool) Store {
	return &pgxStore{pool: pool}
}

func (s *pgxStore) Append(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", e.Type, err)
	}
	var metadata any
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(b)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.domain_events").
		Columns("id", "type", "origin", "actor_id", "entity_type", "entity_id", "payload", "metadata", "occurred_at").
		Values(
			e.ID, string(e.Type), e.Origin, e.ActorID, e.EntityType, e.EntityID,
			squirrel.Expr("?::jsonb", string(payload)), squirrel.Expr("?::jsonb", metadata), e.OccurredAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build append event query failed: %w", err)
	}

	if _, err := db.Conn(ctx, s.pool).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("append event failed: %w", err)
	}
	return nil
}
