package booking

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
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)

	// MarkCancelled applies c if the booking is still in one of c.From.
	// It reports false when the booking had already moved on.
	MarkCancelled(ctx context.Context, id string, c Cancellation) (bool, error)

	// ConfirmPaid moves a pending booking to confirmed and paid. It reports
	// false when the booking was not pending.
	ConfirmPaid(ctx context.Context, id string) (bool, error)

	// ListExpiredPending returns ids of pending bookings created before cutoff.
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var bookingColumns = []string{
	"b.id", "b.block_id", "b.building_id", "b.payer_id", "b.payer_email",
	"b.visitor_name", "b.visitor_phone", "b.vehicle_plate",
	"b.amount", "b.commission", "b.currency", "b.pricing_rule_id",
	"b.status", "b.payment_status", "b.confirmation_code", "b.refund_amount",
	"b.cancelled_by", "b.cancel_reason", "b.cancelled_at", "b.created_at", "b.updated_at",
	"s.label", "bl.start_time", "bl.end_time",
}

func selectBookings() squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select(bookingColumns...).
		From("public.bookings b").
		Join("public.blocks bl ON b.block_id = bl.id").
		Join("public.spots s ON bl.spot_id = s.id")
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	dest := []any{
		&b.ID, &b.BlockID, &b.BuildingID, &b.PayerID, &b.PayerEmail,
		&b.VisitorName, &b.VisitorPhone, &b.VehiclePlate,
		&b.Amount, &b.Commission, &b.Currency, &b.PricingRuleID,
		&b.Status, &b.PaymentStatus, &b.ConfirmationCode, &b.RefundAmount,
		&b.CancelledBy, &b.CancelReason, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt,
		&b.SpotLabel, &b.StartTime, &b.EndTime,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns(
			"block_id", "building_id", "payer_id", "payer_email",
			"visitor_name", "visitor_phone", "vehicle_plate",
			"amount", "commission", "currency", "pricing_rule_id",
			"status", "payment_status", "confirmation_code",
		).
		Values(
			b.BlockID, b.BuildingID, b.PayerID, b.PayerEmail,
			b.VisitorName, b.VisitorPhone, b.VehiclePlate,
			b.Amount, b.Commission, b.Currency, b.PricingRuleID,
			b.Status, b.PaymentStatus, b.ConfirmationCode,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	query, args, err := selectBookings().Where(squirrel.Eq{"b.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := selectBookings().Column("count(*) OVER() AS total_count")

	if filter.PayerID != "" {
		query = query.Where(squirrel.Eq{"b.payer_id": filter.PayerID})
	}
	if filter.BuildingID != "" {
		query = query.Where(squirrel.Eq{"b.building_id": filter.BuildingID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	sql, args, err := query.
		OrderBy("b.created_at DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bookings failed: %w", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) MarkCancelled(ctx context.Context, id string, c Cancellation) (bool, error) {
	from := c.From
	if len(from) == 0 {
		from = []Status{StatusPending, StatusConfirmed}
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Update("public.bookings").
		Set("status", StatusCancelled).
		Set("refund_amount", c.RefundAmount).
		Set("cancelled_by", c.ActorID).
		Set("cancel_reason", c.Reason).
		Set("cancelled_at", c.At).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": from})
	// A zero refund leaves the payment status as it was, paid included.
	if c.RefundAmount > 0 {
		q = q.Set("payment_status", PaymentRefunded)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build cancel booking query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("cancel booking failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) ConfirmPaid(ctx context.Context, id string) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", StatusConfirmed).
		Set("payment_status", PaymentPaid).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": StatusPending}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build confirm booking query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("confirm booking failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id").
		From("public.bookings").
		Where(squirrel.Eq{"status": StatusPending}).
		Where(squirrel.Lt{"created_at": cutoff}).
		OrderBy("created_at").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list expired query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expired bookings failed: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan expired bookings failed: %w", err)
	}
	return ids, nil
}
