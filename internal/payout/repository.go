package payout

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
	// Aggregate sums confirmed, paid bookings of a building whose block
	// starts within [from, to).
	Aggregate(ctx context.Context, buildingID string, from, to time.Time) (Totals, error)

	// ActiveBuildings lists buildings with at least one paid booking in [from, to).
	ActiveBuildings(ctx context.Context, from, to time.Time) ([]string, error)

	// Insert returns ErrAlreadyExists when the building already has a payout
	// for the period and ErrMissingReference when the building is gone.
	Insert(ctx context.Context, p *Payout) error
	GetByPeriod(ctx context.Context, buildingID string, periodStart time.Time) (*Payout, error)
	GetByID(ctx context.Context, id string) (*Payout, error)

	// InsertCommission returns ErrAlreadyExists when the payout already has
	// a commission and ErrMissingReference when the payout is gone.
	InsertCommission(ctx context.Context, c *Commission) error
	GetCommission(ctx context.Context, payoutID string) (*Commission, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var payoutColumns = []string{
	"id", "building_id", "period_start", "period_end", "booking_count",
	"gross_amount", "commission_amount", "net_amount", "created_at",
}

func paidBookings(psql squirrel.StatementBuilderType, from, to time.Time) squirrel.SelectBuilder {
	return psql.Select().
		From("public.bookings b").
		Join("public.blocks bl ON b.block_id = bl.id").
		Where(squirrel.Eq{"b.status": "confirmed", "b.payment_status": "paid"}).
		Where(squirrel.GtOrEq{"bl.start_time": from}).
		Where(squirrel.Lt{"bl.start_time": to})
}

func (r *pgxRepository) Aggregate(ctx context.Context, buildingID string, from, to time.Time) (Totals, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := paidBookings(psql, from, to).
		Columns("COUNT(*)", "COALESCE(SUM(b.amount), 0)", "COALESCE(SUM(b.commission), 0)").
		Where(squirrel.Eq{"b.building_id": buildingID}).
		ToSql()
	if err != nil {
		return Totals{}, fmt.Errorf("build aggregate query failed: %w", err)
	}

	var t Totals
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&t.BookingCount, &t.Gross, &t.Commission); err != nil {
		return Totals{}, fmt.Errorf("aggregate bookings failed: %w", err)
	}
	return t, nil
}

func (r *pgxRepository) ActiveBuildings(ctx context.Context, from, to time.Time) ([]string, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := paidBookings(psql, from, to).
		Columns("DISTINCT b.building_id::text").
		OrderBy("1").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active buildings query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active buildings failed: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan active buildings failed: %w", err)
	}
	return ids, nil
}

func (r *pgxRepository) Insert(ctx context.Context, p *Payout) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.payouts").
		Columns("building_id", "period_start", "period_end", "booking_count", "gross_amount", "commission_amount", "net_amount").
		Values(p.BuildingID, p.PeriodStart, p.PeriodEnd, p.BookingCount, p.GrossAmount, p.CommissionAmount, p.NetAmount).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert payout query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt); err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return ErrAlreadyExists.WithCause(err)
		case db.IsForeignKeyViolation(err):
			return ErrMissingReference.WithCause(err)
		}
		return fmt.Errorf("insert payout failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*Payout, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(payoutColumns...).
		From("public.payouts").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get payout query failed: %w", err)
	}

	var p Payout
	err = db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.BuildingID, &p.PeriodStart, &p.PeriodEnd, &p.BookingCount,
		&p.GrossAmount, &p.CommissionAmount, &p.NetAmount, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payout failed: %w", err)
	}
	return &p, nil
}

func (r *pgxRepository) GetByPeriod(ctx context.Context, buildingID string, periodStart time.Time) (*Payout, error) {
	return r.getOne(ctx, squirrel.Eq{"building_id": buildingID, "period_start": periodStart})
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Payout, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *pgxRepository) InsertCommission(ctx context.Context, c *Commission) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.commissions").
		Columns("payout_id", "amount").
		Values(c.PayoutID, c.Amount).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert commission query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&c.ID, &c.CreatedAt); err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return ErrAlreadyExists.WithCause(err)
		case db.IsForeignKeyViolation(err):
			return ErrMissingReference.WithCause(err)
		}
		return fmt.Errorf("insert commission failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetCommission(ctx context.Context, payoutID string) (*Commission, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "payout_id", "amount", "created_at").
		From("public.commissions").
		Where(squirrel.Eq{"payout_id": payoutID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get commission query failed: %w", err)
	}

	var c Commission
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&c.ID, &c.PayoutID, &c.Amount, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get commission failed: %w", err)
	}
	return &c, nil
}
