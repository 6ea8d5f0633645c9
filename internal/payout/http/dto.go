package http

import (
	"time"

	"github.com/nekogravitycat/visitor-parking-backend/internal/payout"
)

const dateLayout = "2006-01-02"

type RunRequest struct {
	Date       string `json:"date" binding:"required"`
	BuildingID string `json:"building_id" binding:"omitempty,uuid"`
}

type PayoutResponse struct {
	ID               string    `json:"id"`
	BuildingID       string    `json:"building_id"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	BookingCount     int       `json:"booking_count"`
	GrossAmount      int64     `json:"gross_amount"`
	CommissionAmount int64     `json:"commission_amount"`
	NetAmount        int64     `json:"net_amount"`
}

type RunResultResponse struct {
	BuildingID   string          `json:"building_id"`
	Outcome      string          `json:"outcome"`
	Payout       *PayoutResponse `json:"payout,omitempty"`
	CommissionID string          `json:"commission_id,omitempty"`
}

type RunResponse struct {
	Date    string              `json:"date"`
	Results []RunResultResponse `json:"results"`
	Errors  string              `json:"errors,omitempty"`
}

func NewRunResultResponse(r *payout.RunResult) RunResultResponse {
	resp := RunResultResponse{BuildingID: r.BuildingID, Outcome: string(r.Outcome)}
	if p := r.Payout; p != nil {
		resp.Payout = &PayoutResponse{
			ID:               p.ID,
			BuildingID:       p.BuildingID,
			PeriodStart:      p.PeriodStart,
			PeriodEnd:        p.PeriodEnd,
			BookingCount:     p.BookingCount,
			GrossAmount:      p.GrossAmount,
			CommissionAmount: p.CommissionAmount,
			NetAmount:        p.NetAmount,
		}
	}
	if r.Commission != nil {
		resp.CommissionID = r.Commission.ID
	}
	return resp
}
