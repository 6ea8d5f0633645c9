package booking

import (
	"time"

	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound            = apperror.New(apperror.KindNotFound, "booking_not_found", "booking not found")
	ErrInvalidInput        = apperror.New(apperror.KindInvalidRequest, "invalid_input", "invalid booking request")
	ErrResourceUnavailable = apperror.New(apperror.KindConflict, "resource_unavailable", "spot is no longer available")
	ErrPastWindow          = apperror.New(apperror.KindInvalidRequest, "past_window", "cannot book a time window that has already started")
	ErrCrossBuilding       = apperror.New(apperror.KindForbidden, "cross_building_access", "spot belongs to another building")
	ErrOverlapDetected     = apperror.New(apperror.KindConflict, "overlap_detected", "spot is already booked for an overlapping time")
	ErrPaymentInitFailed   = apperror.New(apperror.KindGatewayFailure, "payment_init_failed", "payment could not be started, the booking was cancelled")
	ErrForbidden           = apperror.New(apperror.KindForbidden, "permission_denied", "permission denied")
	ErrInvalidState        = apperror.New(apperror.KindConflict, "invalid_state", "booking can no longer be cancelled")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Booking struct {
	ID               string
	BlockID          string
	BuildingID       string
	PayerID          string
	PayerEmail       string
	VisitorName      string
	VisitorPhone     string
	VehiclePlate     string
	Amount           int64
	Commission       int64
	Currency         string
	PricingRuleID    *int64
	Status           Status
	PaymentStatus    PaymentStatus
	ConfirmationCode string
	RefundAmount     int64
	CancelledBy      *string
	CancelReason     *string
	CancelledAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Joined from the block and spot.
	SpotLabel string
	StartTime time.Time
	EndTime   time.Time
}

type Filter struct {
	PayerID    string
	BuildingID string
	Status     string
	Page       int
	PageSize   int
}

// Cancellation describes the state change written when a booking is cancelled.
type Cancellation struct {
	ActorID      string
	Reason       string
	RefundAmount int64
	At           time.Time
	// From lists the statuses the booking may be in for the update to apply.
	From []Status
}
