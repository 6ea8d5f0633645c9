package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/visitor-parking-backend/internal/db"
)

type Repository interface {
	GetByBookingID(ctx context.Context, bookingID string) (*Payment, error)

	// Upsert creates the booking's payment or updates its status, reference
	// and raw response. The recorded mode of an existing row never changes.
	Upsert(ctx context.Context, p *Payment) error

	MarkRefunded(ctx context.Context, bookingID string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var paymentColumns = []string{
	"id", "booking_id", "status", "mode", "amount", "gateway_ref", "raw_response", "created_at", "updated_at",
}

func (r *pgxRepository) GetByBookingID(ctx context.Context, bookingID string) (*Payment, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(paymentColumns...).
		From("public.payments").
		Where(squirrel.Eq{"booking_id": bookingID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get payment query failed: %w", err)
	}

	var p Payment
	var raw []byte
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.BookingID, &p.Status, &p.Mode, &p.Amount, &p.GatewayRef, &raw, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment failed: %w", err)
	}
	p.RawResponse = raw
	return &p, nil
}

func (r *pgxRepository) Upsert(ctx context.Context, p *Payment) error {
	var raw any
	if len(p.RawResponse) > 0 {
		raw = string(p.RawResponse)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.payments").
		Columns("booking_id", "status", "mode", "amount", "gateway_ref", "raw_response").
		Values(p.BookingID, p.Status, p.Mode, p.Amount, p.GatewayRef, squirrel.Expr("?::jsonb", raw)).
		Suffix(`ON CONFLICT (booking_id) DO UPDATE SET
			status = EXCLUDED.status,
			amount = CASE WHEN EXCLUDED.amount > 0 THEN EXCLUDED.amount ELSE payments.amount END,
			gateway_ref = COALESCE(NULLIF(EXCLUDED.gateway_ref, ''), payments.gateway_ref),
			raw_response = COALESCE(EXCLUDED.raw_response, payments.raw_response),
			updated_at = now()
		RETURNING id, mode, amount, gateway_ref, created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert payment query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).
		Scan(&p.ID, &p.Mode, &p.Amount, &p.GatewayRef, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("upsert payment failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) MarkRefunded(ctx context.Context, bookingID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.payments").
		Set("status", StatusRefunded).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"booking_id": bookingID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark payment refunded query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark payment refunded failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
