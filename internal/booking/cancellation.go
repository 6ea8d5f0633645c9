package booking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
	"github.com/nekogravitycat/visitor-parking-backend/internal/event"
	"github.com/nekogravitycat/visitor-parking-backend/internal/payment"
)

// RefundTier names the policy branch that produced a refund amount.
type RefundTier string

const (
	TierNone     RefundTier = "none"
	TierOverride RefundTier = "override"
	TierStandard RefundTier = "standard"
	TierLate     RefundTier = "late"
)

// FreeCancellationWindow is how far ahead of the block start a payer must
// cancel to get the standard refund.
const FreeCancellationWindow = 24 * time.Hour

const standardRefundPercent = 90

type CancelResult struct {
	BookingID    string
	RefundAmount int64
	Tier         RefundTier
	// AlreadyCancelled is set when the call was a no-op.
	AlreadyCancelled bool
}

// RefundFor computes the refund owed when actor cancels b at now. Unpaid
// bookings refund nothing.
func RefundFor(b *Booking, actor auth.Identity, now time.Time) (int64, RefundTier) {
	if b.PaymentStatus != PaymentPaid {
		return 0, TierNone
	}
	if actor.Role.Elevated() {
		return b.Amount, TierOverride
	}
	if b.StartTime.Sub(now) >= FreeCancellationWindow {
		return b.Amount * standardRefundPercent / 100, TierStandard
	}
	return 0, TierLate
}

func (s *service) Cancel(ctx context.Context, bookingID string, actor auth.Identity, reason string) (*CancelResult, error) {
	return s.cancel(ctx, bookingID, actor, reason, nil)
}

func (s *service) cancel(ctx context.Context, bookingID string, actor auth.Identity, reason string, from []Status) (*CancelResult, error) {
	ctx, span := tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(
		attribute.String("booking.id", bookingID),
		attribute.String("actor.role", string(actor.Role)),
	))
	defer span.End()

	var (
		b   *Booking
		res *CancelResult
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !canAct(b, actor) {
			return ErrForbidden
		}

		switch b.Status {
		case StatusCancelled:
			res = &CancelResult{BookingID: b.ID, Tier: TierNone, AlreadyCancelled: true}
			return nil
		case StatusCompleted, StatusNoShow:
			return ErrInvalidState
		}

		now := s.clock.Now()
		amount, tier := RefundFor(b, actor, now)

		ok, err := s.repo.MarkCancelled(ctx, b.ID, Cancellation{
			ActorID:      actor.UserID,
			Reason:       reason,
			RefundAmount: amount,
			At:           now,
			From:         from,
		})
		if err != nil {
			return err
		}
		if !ok {
			// Lost a race; report whatever state won.
			cur, err := s.repo.GetByID(ctx, b.ID)
			if err != nil {
				return err
			}
			if cur.Status == StatusCancelled {
				res = &CancelResult{BookingID: b.ID, Tier: TierNone, AlreadyCancelled: true}
				return nil
			}
			return ErrInvalidState
		}

		if err := s.blocks.Release(ctx, b.BlockID); err != nil {
			return err
		}

		res = &CancelResult{BookingID: b.ID, RefundAmount: amount, Tier: tier}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if res.AlreadyCancelled {
		return res, nil
	}
	span.SetAttributes(attribute.Int64("refund.amount", res.RefundAmount), attribute.String("refund.tier", string(res.Tier)))

	s.log.Info("booking cancelled",
		zap.String("booking_id", b.ID),
		zap.String("actor_id", actor.UserID),
		zap.String("role", string(actor.Role)),
		zap.Int64("refund", res.RefundAmount),
		zap.String("tier", string(res.Tier)),
	)

	// Money moves only after the spot is released. A failure here is left
	// for manual reconciliation.
	if res.RefundAmount > 0 {
		if err := s.refund(ctx, b, res.RefundAmount, reason); err != nil {
			s.log.Error("refund failed, manual reconciliation required",
				zap.String("booking_id", b.ID),
				zap.Int64("refund", res.RefundAmount),
				zap.Error(err),
			)
		}
	}

	s.publish(ctx, event.New(actor.UserID, "booking", b.ID, event.BookingCancelled{
		BookingID:    b.ID,
		BlockID:      b.BlockID,
		BuildingID:   b.BuildingID,
		CancelledBy:  actor.UserID,
		RefundAmount: res.RefundAmount,
		Tier:         string(res.Tier),
		Reason:       reason,
	}))

	return res, nil
}

func (s *service) refund(ctx context.Context, b *Booking, amount int64, reason string) error {
	p, err := s.payments.GetByBookingID(ctx, b.ID)
	if err != nil {
		return err
	}
	// The mode recorded on the payment picks the gateway, not the current default.
	gw, err := s.gateways.ForMode(p.Mode)
	if err != nil {
		return err
	}
	if err := gw.Refund(ctx, payment.RefundRequest{Payment: p, Amount: amount, Reason: reason}); err != nil {
		return err
	}
	return s.payments.MarkRefunded(ctx, b.ID)
}
