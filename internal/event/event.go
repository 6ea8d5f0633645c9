package event

import (
	"time"
)

// Type names a domain event on the wire and in the audit log.
type Type string

const (
	TypeBookingCreated     Type = "booking.created"
	TypeBookingCancelled   Type = "booking.cancelled"
	TypeBookingConfirmed   Type = "booking.confirmed"
	TypePaymentRecorded    Type = "payment.recorded"
	TypeSuspiciousActivity Type = "security.suspicious_activity"
	TypePayoutCreated      Type = "payout.created"
)

// Payload is implemented by every typed event body. The set is closed:
// decoding an unknown type fails.
type Payload interface {
	EventType() Type
}

// Event is the envelope persisted and broadcast for each domain event.
// Metadata carries request diagnostics (ip, country) and nothing the
// business logic depends on.
type Event struct {
	ID         string
	Type       Type
	Origin     string
	ActorID    string
	EntityType string
	EntityID   string
	Payload    Payload
	Metadata   map[string]string
	OccurredAt time.Time
}

// New builds an envelope around p. ID, Origin and OccurredAt are filled in
// by the bus on publish when left empty.
func New(actorID, entityType, entityID string, p Payload) Event {
	return Event{
		Type:       p.EventType(),
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    p,
	}
}

// WithMetadata returns a copy of e carrying the given key/value pairs.
func (e Event) WithMetadata(md map[string]string) Event {
	if len(md) == 0 {
		return e
	}
	merged := make(map[string]string, len(e.Metadata)+len(md))
	for k, v := range e.Metadata {
		merged[k] = v
	}
	for k, v := range md {
		merged[k] = v
	}
	e.Metadata = merged
	return e
}

type BookingCreated struct {
	BookingID        string `json:"booking_id"`
	BlockID          string `json:"block_id"`
	BuildingID       string `json:"building_id"`
	PayerID          string `json:"payer_id"`
	ConfirmationCode string `json:"confirmation_code"`
	Amount           int64  `json:"amount"`
	Commission       int64  `json:"commission"`
	Currency         string `json:"currency"`
	PricingRuleID    *int64 `json:"pricing_rule_id,omitempty"`
}

func (BookingCreated) EventType() Type { return TypeBookingCreated }

type BookingCancelled struct {
	BookingID    string `json:"booking_id"`
	BlockID      string `json:"block_id"`
	BuildingID   string `json:"building_id"`
	CancelledBy  string `json:"cancelled_by"`
	RefundAmount int64  `json:"refund_amount"`
	Tier         string `json:"tier"`
	Reason       string `json:"reason,omitempty"`
}

func (BookingCancelled) EventType() Type { return TypeBookingCancelled }

type BookingConfirmed struct {
	BookingID  string `json:"booking_id"`
	BuildingID string `json:"building_id"`
	Amount     int64  `json:"amount"`
}

func (BookingConfirmed) EventType() Type { return TypeBookingConfirmed }

type PaymentRecorded struct {
	BookingID  string `json:"booking_id"`
	Mode       string `json:"mode"`
	Status     string `json:"status"`
	Amount     int64  `json:"amount"`
	GatewayRef string `json:"gateway_ref,omitempty"`
}

func (PaymentRecorded) EventType() Type { return TypePaymentRecorded }

// SuspiciousActivity flags a booking made from outside the home country.
type SuspiciousActivity struct {
	BookingID   string `json:"booking_id"`
	PayerID     string `json:"payer_id"`
	Country     string `json:"country"`
	HomeCountry string `json:"home_country"`
	Reason      string `json:"reason"`
}

func (SuspiciousActivity) EventType() Type { return TypeSuspiciousActivity }

type PayoutCreated struct {
	PayoutID     string    `json:"payout_id"`
	BuildingID   string    `json:"building_id"`
	PeriodStart  time.Time `json:"period_start"`
	BookingCount int       `json:"booking_count"`
	Gross        int64     `json:"gross_amount"`
	Commission   int64     `json:"commission_amount"`
	Net          int64     `json:"net_amount"`
}

func (PayoutCreated) EventType() Type { return TypePayoutCreated }
