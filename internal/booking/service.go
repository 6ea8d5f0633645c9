package booking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
	"github.com/nekogravitycat/visitor-parking-backend/internal/blacklist"
	"github.com/nekogravitycat/visitor-parking-backend/internal/block"
	"github.com/nekogravitycat/visitor-parking-backend/internal/clock"
	"github.com/nekogravitycat/visitor-parking-backend/internal/db"
	"github.com/nekogravitycat/visitor-parking-backend/internal/event"
	"github.com/nekogravitycat/visitor-parking-backend/internal/payment"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pricing"
)

var tracer = otel.Tracer("github.com/nekogravitycat/visitor-parking-backend/internal/booking")

type Service interface {
	Admit(ctx context.Context, payer auth.Identity, req AdmitRequest) (*AdmissionResult, error)
	Cancel(ctx context.Context, bookingID string, actor auth.Identity, reason string) (*CancelResult, error)
	GetByID(ctx context.Context, id string, viewer auth.Identity) (*Booking, error)
	List(ctx context.Context, viewer auth.Identity, filter Filter) ([]*Booking, int, error)

	// ExpirePending cancels pending bookings older than ttl and returns how
	// many were cancelled.
	ExpirePending(ctx context.Context, ttl time.Duration) (int, error)
}

// Publisher is the part of the event bus the booking service needs.
type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}

// Gateways resolves payment gateways for new payments and for refunds.
type Gateways interface {
	Default() payment.Gateway
	ForMode(m payment.Mode) (payment.Gateway, error)
}

// Deps are the collaborators of the booking service.
type Deps struct {
	Repo      Repository
	Blocks    block.Repository
	Payments  payment.Repository
	Gateways  Gateways
	Pricing   pricing.Service
	Blacklist blacklist.Checker
	Tx        db.Transactor
	Events    Publisher
	Clock     clock.Clock
	Log       *zap.Logger

	Currency    string
	HomeCountry string
}

type service struct {
	repo      Repository
	blocks    block.Repository
	payments  payment.Repository
	gateways  Gateways
	pricing   pricing.Service
	blacklist blacklist.Checker
	tx        db.Transactor
	events    Publisher
	clock     clock.Clock
	log       *zap.Logger

	currency    string
	homeCountry string
}

func NewService(d Deps) Service {
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &service{
		repo:        d.Repo,
		blocks:      d.Blocks,
		payments:    d.Payments,
		gateways:    d.Gateways,
		pricing:     d.Pricing,
		blacklist:   d.Blacklist,
		tx:          d.Tx,
		events:      d.Events,
		clock:       d.Clock,
		log:         d.Log.With(zap.String("component", "booking")),
		currency:    d.Currency,
		homeCountry: d.HomeCountry,
	}
}

// canAct reports whether actor may read or cancel b. Operators are bound
// to the building they manage.
func canAct(b *Booking, actor auth.Identity) bool {
	if b.PayerID == actor.UserID {
		return true
	}
	switch actor.Role {
	case auth.RoleOperator:
		return actor.BuildingID != "" && b.BuildingID == actor.BuildingID
	case auth.RoleSupport, auth.RoleAdmin, auth.RoleSystem:
		return true
	}
	return false
}

func (s *service) GetByID(ctx context.Context, id string, viewer auth.Identity) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAct(b, viewer) {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *service) List(ctx context.Context, viewer auth.Identity, filter Filter) ([]*Booking, int, error) {
	switch viewer.Role {
	case auth.RoleAdmin, auth.RoleSupport, auth.RoleSystem:
	case auth.RoleOperator:
		// Operators see their own building.
		filter.BuildingID = viewer.BuildingID
	default:
		filter.PayerID = viewer.UserID
	}
	return s.repo.List(ctx, filter)
}

func (s *service) publish(ctx context.Context, e event.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Error("failed to publish event",
			zap.String("type", string(e.Type)), zap.String("entity_id", e.EntityID), zap.Error(err))
	}
}
