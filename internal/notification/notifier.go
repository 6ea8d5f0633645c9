package notification

import (
	"context"
	"time"
)

// Confirmation is what a visitor is told once their booking is paid.
type Confirmation struct {
	BookingID        string    `json:"booking_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	VisitorName      string    `json:"visitor_name"`
	VisitorPhone     string    `json:"visitor_phone"`
	PlateNumber      string    `json:"plate_number"`
	SpotLabel        string    `json:"spot_label"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
}

// Notifier delivers booking confirmations to the visitor.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, c Confirmation) error
	Close() error
}
