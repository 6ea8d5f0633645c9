package http

import (
	"time"

	"github.com/nekogravitycat/visitor-parking-backend/internal/booking"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/request"
)

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed no_show"`
}

type CreateBookingRequest struct {
	BlockID      string `json:"block_id" binding:"required,uuid"`
	VisitorName  string `json:"visitor_name" binding:"required,max=200"`
	VisitorPhone string `json:"visitor_phone" binding:"omitempty,max=32"`
	VehiclePlate string `json:"vehicle_plate" binding:"required,max=32"`
	NationalID   string `json:"national_id" binding:"omitempty,max=64"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type SpotTag struct {
	Label     string    `json:"label"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type BookingResponse struct {
	ID               string     `json:"id"`
	BlockID          string     `json:"block_id"`
	BuildingID       string     `json:"building_id"`
	PayerID          string     `json:"payer_id"`
	Spot             SpotTag    `json:"spot"`
	VisitorName      string     `json:"visitor_name"`
	VehiclePlate     string     `json:"vehicle_plate"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	PaymentStatus    string     `json:"payment_status"`
	ConfirmationCode string     `json:"confirmation_code"`
	RefundAmount     int64      `json:"refund_amount"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:               b.ID,
		BlockID:          b.BlockID,
		BuildingID:       b.BuildingID,
		PayerID:          b.PayerID,
		Spot:             SpotTag{Label: b.SpotLabel, StartTime: b.StartTime, EndTime: b.EndTime},
		VisitorName:      b.VisitorName,
		VehiclePlate:     b.VehiclePlate,
		Amount:           b.Amount,
		Currency:         b.Currency,
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		ConfirmationCode: b.ConfirmationCode,
		RefundAmount:     b.RefundAmount,
		CancelledAt:      b.CancelledAt,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

type AdmissionResponse struct {
	Booking    BookingResponse `json:"booking"`
	PaymentURL string          `json:"payment_url"`
}

type CancelResponse struct {
	RefundAmount int64  `json:"refund_amount"`
	Tier         string `json:"tier"`
}
