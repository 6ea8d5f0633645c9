package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
	"github.com/nekogravitycat/visitor-parking-backend/internal/booking"
	"github.com/nekogravitycat/visitor-parking-backend/internal/db"
	"github.com/nekogravitycat/visitor-parking-backend/internal/event"
	"github.com/nekogravitycat/visitor-parking-backend/internal/notification"
	"github.com/nekogravitycat/visitor-parking-backend/internal/payment"
)

var tracer = otel.Tracer("github.com/nekogravitycat/visitor-parking-backend/internal/webhook")

const notifyTimeout = 10 * time.Second

// StatusIgnored is reported for deliveries that carry no payment outcome.
const StatusIgnored = "ignored"

// Result is what the webhook endpoint answers.
type Result struct {
	BookingID  string
	Status     string
	Idempotent bool
}

// Gateways resolves the gateway named by the webhook route. Default is the
// gateway that owns bookings with no payment recorded yet.
type Gateways interface {
	Default() payment.Gateway
	ForKind(kind string) (payment.Gateway, error)
}

type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}

type Deps struct {
	Gateways Gateways
	Bookings booking.Repository
	Payments payment.Repository
	Tx       db.Transactor
	Notifier notification.Notifier
	Events   Publisher
	Log      *zap.Logger
}

// Reconciler applies gateway notifications to payments and bookings.
type Reconciler struct {
	gateways Gateways
	bookings booking.Repository
	payments payment.Repository
	tx       db.Transactor
	notifier notification.Notifier
	events   Publisher
	log      *zap.Logger
}

func NewReconciler(d Deps) *Reconciler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		gateways: d.Gateways,
		bookings: d.Bookings,
		payments: d.Payments,
		tx:       d.Tx,
		notifier: d.Notifier,
		events:   d.Events,
		log:      log.With(zap.String("component", "webhook")),
	}
}

// Process handles one delivery. Repeated deliveries of the same outcome
// return Idempotent and write nothing.
func (r *Reconciler) Process(ctx context.Context, kind string, in payment.WebhookInput) (*Result, error) {
	ctx, span := tracer.Start(ctx, "webhook.Process", trace.WithAttributes(attribute.String("gateway.kind", kind)))
	defer span.End()

	res, err := r.process(ctx, kind, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("booking.id", res.BookingID),
		attribute.String("payment.status", res.Status),
		attribute.Bool("idempotent", res.Idempotent),
	)
	return res, nil
}

func (r *Reconciler) process(ctx context.Context, kind string, in payment.WebhookInput) (*Result, error) {
	gw, err := r.gateways.ForKind(kind)
	if err != nil {
		return nil, err
	}

	// The authoritative lookup talks to the gateway, so it stays outside
	// the transaction.
	notice, err := gw.ParseWebhook(ctx, in)
	if err != nil {
		return nil, err
	}
	if notice.Ignored || (notice.Status != payment.StatusApproved && notice.Status != payment.StatusRejected) {
		return &Result{BookingID: notice.BookingID, Status: StatusIgnored, Idempotent: true}, nil
	}

	res := &Result{BookingID: notice.BookingID, Status: string(notice.Status)}
	var (
		recorded  *payment.Payment
		confirmed *booking.Booking
	)
	err = r.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := r.payments.GetByBookingID(ctx, notice.BookingID)
		if err != nil && !errors.Is(err, payment.ErrNotFound) {
			return err
		}
		// A gateway only speaks for payments it created.
		owner := r.gateways.Default().Mode()
		if existing != nil {
			owner = existing.Mode
		}
		if owner != gw.Mode() {
			r.log.Warn("webhook rejected, payment belongs to another gateway",
				zap.String("booking_id", notice.BookingID),
				zap.String("gateway", string(gw.Mode())),
				zap.String("payment_mode", string(owner)),
			)
			return payment.ErrGatewayMismatch.WithCause(fmt.Errorf("%s delivery for %s payment", gw.Mode(), owner))
		}

		if existing != nil && settled(existing.Status, notice.Status) {
			res.Idempotent = true
			return nil
		}

		b, err := r.bookings.GetByID(ctx, notice.BookingID)
		if err != nil {
			return err
		}

		p := &payment.Payment{
			BookingID:   b.ID,
			Status:      notice.Status,
			Mode:        gw.Mode(),
			Amount:      notice.Amount,
			GatewayRef:  notice.GatewayRef,
			RawResponse: notice.Raw,
		}
		if p.Amount == 0 {
			p.Amount = b.Amount
		}
		if err := r.payments.Upsert(ctx, p); err != nil {
			return err
		}
		recorded = p

		if notice.Status != payment.StatusApproved {
			// A rejected attempt leaves the booking pending; the expiry
			// worker releases the block if nothing else arrives.
			return nil
		}

		switch b.Status {
		case booking.StatusPending:
			ok, err := r.bookings.ConfirmPaid(ctx, b.ID)
			if err != nil {
				return err
			}
			if ok {
				b.Status, b.PaymentStatus = booking.StatusConfirmed, booking.PaymentPaid
				confirmed = b
			}
		case booking.StatusConfirmed:
		default:
			r.log.Warn("payment approved for a booking that is no longer pending, refund manually",
				zap.String("booking_id", b.ID),
				zap.String("booking_status", string(b.Status)),
				zap.String("gateway_ref", notice.GatewayRef),
				zap.Int64("amount", p.Amount),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Idempotent {
		r.log.Debug("duplicate webhook delivery", zap.String("booking_id", res.BookingID), zap.String("status", res.Status))
		return res, nil
	}

	r.publish(ctx, event.New(auth.SystemActorID, "payment", recorded.BookingID, event.PaymentRecorded{
		BookingID:  recorded.BookingID,
		Mode:       string(recorded.Mode),
		Status:     string(recorded.Status),
		Amount:     recorded.Amount,
		GatewayRef: recorded.GatewayRef,
	}))

	if confirmed != nil {
		r.publish(ctx, event.New(auth.SystemActorID, "booking", confirmed.ID, event.BookingConfirmed{
			BookingID:  confirmed.ID,
			BuildingID: confirmed.BuildingID,
			Amount:     confirmed.Amount,
		}))
		r.notify(ctx, confirmed)
	}
	return res, nil
}

// settled reports whether a payment already in current makes a delivery of
// target a no-op. Approvals and refunds are never walked back by a late
// rejection.
func settled(current, target payment.Status) bool {
	switch {
	case current == target:
		return true
	case current == payment.StatusRefunded:
		return true
	case current == payment.StatusApproved && target == payment.StatusRejected:
		return true
	}
	return false
}

func (r *Reconciler) notify(ctx context.Context, b *booking.Booking) {
	if r.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	err := r.notifier.SendBookingConfirmation(ctx, notification.Confirmation{
		BookingID:        b.ID,
		ConfirmationCode: b.ConfirmationCode,
		VisitorName:      b.VisitorName,
		VisitorPhone:     b.VisitorPhone,
		PlateNumber:      b.VehiclePlate,
		SpotLabel:        b.SpotLabel,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		Amount:           b.Amount,
		Currency:         b.Currency,
	})
	if err != nil {
		r.log.Error("failed to send booking confirmation", zap.String("booking_id", b.ID), zap.Error(err))
	}
}

func (r *Reconciler) publish(ctx context.Context, e event.Event) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, e); err != nil {
		r.log.Error("failed to publish event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}
