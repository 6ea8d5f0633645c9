package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
	"github.com/nekogravitycat/visitor-parking-backend/internal/blacklist"
	"github.com/nekogravitycat/visitor-parking-backend/internal/block"
	"github.com/nekogravitycat/visitor-parking-backend/internal/event"
	"github.com/nekogravitycat/visitor-parking-backend/internal/logger"
	"github.com/nekogravitycat/visitor-parking-backend/internal/payment"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pricing"
)

// AdmitRequest is a payer's request to book one block for a visitor.
type AdmitRequest struct {
	BlockID      string
	VisitorName  string
	VisitorPhone string
	VehiclePlate string
	// NationalID is only used for the blocklist check and is never stored.
	NationalID string

	// Request diagnostics, recorded as event metadata.
	OriginCountry string
	ClientIP      string
}

func (r AdmitRequest) validate() error {
	if _, err := uuid.Parse(r.BlockID); err != nil {
		return ErrInvalidInput.WithCause(fmt.Errorf("block id: %w", err))
	}
	if strings.TrimSpace(r.VisitorName) == "" {
		return ErrInvalidInput.WithCause(fmt.Errorf("visitor name is required"))
	}
	if strings.TrimSpace(r.VehiclePlate) == "" {
		return ErrInvalidInput.WithCause(fmt.Errorf("vehicle plate is required"))
	}
	return nil
}

type AdmissionResult struct {
	Booking    *Booking
	PaymentURL string
}

func (s *service) Admit(ctx context.Context, payer auth.Identity, req AdmitRequest) (*AdmissionResult, error) {
	ctx, span := tracer.Start(ctx, "booking.Admit", trace.WithAttributes(
		attribute.String("block.id", req.BlockID),
		attribute.String("payer.id", payer.UserID),
	))
	defer span.End()

	res, err := s.admit(ctx, payer, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.id", res.Booking.ID))
	return res, nil
}

func (s *service) admit(ctx context.Context, payer auth.Identity, req AdmitRequest) (*AdmissionResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// 1. Blocklist, before anything is locked
	if err := s.blacklist.Check(ctx, payer.BuildingID, blacklist.Subject{
		Email:      payer.Email,
		NationalID: req.NationalID,
		Plate:      req.VehiclePlate,
	}); err != nil {
		return nil, err
	}

	var (
		b   *Booking
		blk *block.Block
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		// 2. Acquire the block. This conditional update is the only
		// serialization point between competing payers.
		won, err := s.blocks.Reserve(ctx, req.BlockID)
		if err != nil {
			return err
		}
		if !won {
			if _, err := s.blocks.GetByID(ctx, req.BlockID); err != nil {
				return err
			}
			return ErrResourceUnavailable
		}

		blk, err = s.blocks.GetByID(ctx, req.BlockID)
		if err != nil {
			return err
		}

		// 3. Temporal validity
		if blk.StartTime.Before(s.clock.Now()) {
			return ErrPastWindow
		}

		// 4. Ownership scoping
		if blk.BuildingID != payer.BuildingID {
			return ErrCrossBuilding
		}

		// 5. Overlap re-check against other grid entries of the same spot
		overlap, err := s.blocks.HasOverlap(ctx, blk.SpotID, blk.StartTime, blk.EndTime, blk.ID)
		if err != nil {
			return err
		}
		if overlap {
			return ErrOverlapDetected
		}

		// 6. Pricing
		quote, err := s.pricing.Quote(ctx, pricing.QuoteRequest{
			BuildingID: blk.BuildingID,
			BasePrice:  blk.BasePrice,
			StartTime:  blk.StartTime,
			EndTime:    blk.EndTime,
		})
		if err != nil {
			return err
		}

		// 7. Booking row
		code, err := newConfirmationCode()
		if err != nil {
			return err
		}
		b = &Booking{
			BlockID:          blk.ID,
			BuildingID:       blk.BuildingID,
			PayerID:          payer.UserID,
			PayerEmail:       payer.Email,
			VisitorName:      strings.TrimSpace(req.VisitorName),
			VisitorPhone:     strings.TrimSpace(req.VisitorPhone),
			VehiclePlate:     blacklist.NormalizePlate(req.VehiclePlate),
			Amount:           quote.Total,
			Commission:       quote.Commission,
			Currency:         s.currency,
			PricingRuleID:    quote.RuleID,
			Status:           StatusPending,
			PaymentStatus:    PaymentPending,
			ConfirmationCode: code,
		}
		return s.repo.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	b.SpotLabel = blk.SpotLabel
	b.StartTime = blk.StartTime
	b.EndTime = blk.EndTime

	s.log.Info("booking admitted",
		zap.String("booking_id", b.ID),
		zap.String("block_id", b.BlockID),
		zap.String("payer_id", b.PayerID),
		zap.Int64("amount", b.Amount),
	)

	// 8. Post-commit: events, then payment initiation
	md := requestMetadata(req)
	s.publish(ctx, event.New(payer.UserID, "booking", b.ID, event.BookingCreated{
		BookingID:        b.ID,
		BlockID:          b.BlockID,
		BuildingID:       b.BuildingID,
		PayerID:          b.PayerID,
		ConfirmationCode: b.ConfirmationCode,
		Amount:           b.Amount,
		Commission:       b.Commission,
		Currency:         b.Currency,
		PricingRuleID:    b.PricingRuleID,
	}).WithMetadata(md))

	if country := strings.ToUpper(strings.TrimSpace(req.OriginCountry)); country != "" && country != s.homeCountry {
		s.publish(ctx, event.New(payer.UserID, "booking", b.ID, event.SuspiciousActivity{
			BookingID:   b.ID,
			PayerID:     payer.UserID,
			Country:     country,
			HomeCountry: s.homeCountry,
			Reason:      "foreign_origin",
		}).WithMetadata(md))
	}

	url, err := s.initiatePayment(ctx, b)
	if err != nil {
		s.log.Warn("payment initiation failed, cancelling booking",
			zap.String("booking_id", b.ID), zap.Error(err))

		// The caller's deadline must not stop the compensation.
		if _, cerr := s.Cancel(context.WithoutCancel(ctx), b.ID, auth.System(), "payment_init_failed"); cerr != nil {
			logger.Critical(s.log, "zombie booking: compensating cancellation failed",
				zap.String("booking_id", b.ID),
				zap.String("block_id", b.BlockID),
				zap.NamedError("payment_error", err),
				zap.Error(cerr),
			)
		}
		return nil, ErrPaymentInitFailed.WithCause(err)
	}

	return &AdmissionResult{Booking: b, PaymentURL: url}, nil
}

func (s *service) initiatePayment(ctx context.Context, b *Booking) (string, error) {
	gw := s.gateways.Default()
	intent, err := gw.CreateIntent(ctx, payment.IntentRequest{
		BookingID:        b.ID,
		ConfirmationCode: b.ConfirmationCode,
		Amount:           b.Amount,
		Currency:         b.Currency,
		Description:      fmt.Sprintf("Visitor parking %s, %s", b.SpotLabel, b.StartTime.Format("2006-01-02 15:04")),
		PayerEmail:       b.PayerEmail,
	})
	if err != nil {
		return "", err
	}

	// The recorded mode decides which gateway refunds this payment later.
	if err := s.payments.Upsert(ctx, &payment.Payment{
		BookingID:   b.ID,
		Status:      payment.StatusPending,
		Mode:        gw.Mode(),
		Amount:      b.Amount,
		GatewayRef:  intent.GatewayRef,
		RawResponse: intent.Raw,
	}); err != nil {
		return "", fmt.Errorf("record pending payment: %w", err)
	}
	return intent.RedirectURL, nil
}

func requestMetadata(req AdmitRequest) map[string]string {
	md := map[string]string{}
	if req.ClientIP != "" {
		md["ip"] = req.ClientIP
	}
	if req.OriginCountry != "" {
		md["country"] = strings.ToUpper(req.OriginCountry)
	}
	return md
}
