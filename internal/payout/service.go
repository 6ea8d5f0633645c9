package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
	"github.com/nekogravitycat/visitor-parking-backend/internal/event"
)

type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}

// Service runs the daily payout batch. Every step is idempotent by its
// natural key, and races with a concurrent run resolve to the row the other
// run wrote. Nothing is retried.
type Service struct {
	repo   Repository
	events Publisher
	log    *zap.Logger
}

func NewService(repo Repository, events Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, events: events, log: log.With(zap.String("component", "payout"))}
}

// RunDaily builds the payout of one building for the day containing day.
func (s *Service) RunDaily(ctx context.Context, buildingID string, day time.Time) (*RunResult, error) {
	from, to := Period(day)
	res := &RunResult{BuildingID: buildingID}

	if existing, err := s.repo.GetByPeriod(ctx, buildingID, from); err == nil {
		res.Payout, res.Outcome = existing, OutcomeExists
		return res, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	totals, err := s.repo.Aggregate(ctx, buildingID, from, to)
	if err != nil {
		return nil, err
	}
	if totals.BookingCount == 0 {
		res.Outcome = OutcomeNoActivity
		return res, nil
	}

	p := &Payout{
		BuildingID:       buildingID,
		PeriodStart:      from,
		PeriodEnd:        to,
		BookingCount:     totals.BookingCount,
		GrossAmount:      totals.Gross,
		CommissionAmount: totals.Commission,
		NetAmount:        totals.Gross - totals.Commission,
	}
	err = s.repo.Insert(ctx, p)
	switch {
	case err == nil:
		res.Payout, res.Outcome = p, OutcomeCreated
	case errors.Is(err, ErrAlreadyExists):
		existing, getErr := s.repo.GetByPeriod(ctx, buildingID, from)
		if getErr != nil {
			return nil, fmt.Errorf("load concurrent payout: %w", getErr)
		}
		res.Payout, res.Outcome = existing, OutcomeExists
		return res, nil
	case errors.Is(err, ErrMissingReference):
		s.log.Warn("building vanished before payout was written", zap.String("building_id", buildingID), zap.Error(err))
		res.Outcome = OutcomeSkipped
		return res, nil
	default:
		return nil, err
	}

	s.log.Info("payout created",
		zap.String("payout_id", p.ID),
		zap.String("building_id", buildingID),
		zap.Time("period_start", from),
		zap.Int("bookings", p.BookingCount),
		zap.Int64("net", p.NetAmount),
	)
	if s.events != nil {
		e := event.New(auth.SystemActorID, "payout", p.ID, event.PayoutCreated{
			PayoutID:     p.ID,
			BuildingID:   p.BuildingID,
			PeriodStart:  p.PeriodStart,
			BookingCount: p.BookingCount,
			Gross:        p.GrossAmount,
			Commission:   p.CommissionAmount,
			Net:          p.NetAmount,
		})
		if err := s.events.Publish(ctx, e); err != nil {
			s.log.Error("failed to publish payout event", zap.String("payout_id", p.ID), zap.Error(err))
		}
	}
	return res, nil
}

// CalculateCommission records the platform's commission for a payout. A
// second call returns the first call's row.
func (s *Service) CalculateCommission(ctx context.Context, payoutID string) (*CommissionResult, error) {
	if existing, err := s.repo.GetCommission(ctx, payoutID); err == nil {
		return &CommissionResult{Commission: existing, Outcome: OutcomeExists}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, payoutID)
	if errors.Is(err, ErrNotFound) {
		return &CommissionResult{Outcome: OutcomeSkipped}, nil
	}
	if err != nil {
		return nil, err
	}

	c := &Commission{PayoutID: p.ID, Amount: p.CommissionAmount}
	err = s.repo.InsertCommission(ctx, c)
	switch {
	case err == nil:
		return &CommissionResult{Commission: c, Outcome: OutcomeCreated}, nil
	case errors.Is(err, ErrAlreadyExists):
		existing, getErr := s.repo.GetCommission(ctx, payoutID)
		if getErr != nil {
			return nil, fmt.Errorf("load concurrent commission: %w", getErr)
		}
		return &CommissionResult{Commission: existing, Outcome: OutcomeExists}, nil
	case errors.Is(err, ErrMissingReference):
		s.log.Warn("payout vanished before commission was written", zap.String("payout_id", payoutID))
		return &CommissionResult{Outcome: OutcomeSkipped}, nil
	default:
		return nil, err
	}
}

// RunAll runs the batch for every building with paid bookings on day. A
// failing building does not stop the others; all failures are returned
// joined.
func (s *Service) RunAll(ctx context.Context, day time.Time) ([]*RunResult, error) {
	from, to := Period(day)
	buildings, err := s.repo.ActiveBuildings(ctx, from, to)
	if err != nil {
		return nil, err
	}

	results := make([]*RunResult, 0, len(buildings))
	var errs []error
	for _, id := range buildings {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := s.RunDaily(ctx, id, day)
		if err != nil {
			s.log.Error("payout run failed", zap.String("building_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("building %s: %w", id, err))
			continue
		}
		if res.Payout != nil {
			cr, err := s.CalculateCommission(ctx, res.Payout.ID)
			if err != nil {
				errs = append(errs, fmt.Errorf("commission for payout %s: %w", res.Payout.ID, err))
			} else {
				res.Commission = cr.Commission
			}
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
