package http

// WebhookResponse acknowledges a gateway delivery.
type WebhookResponse struct {
	BookingID  string `json:"booking_id,omitempty"`
	Status     string `json:"status"`
	Idempotent bool   `json:"idempotent"`
}

type CheckoutQuery struct {
	BookingID string `form:"booking_id" binding:"required,uuid"`
	Amount    int64  `form:"amount" binding:"omitempty,min=0"`
	Currency  string `form:"currency"`
}

// CheckoutPage is what the simulator checkout page renders.
type CheckoutPage struct {
	BookingID string   `json:"booking_id"`
	Amount    int64    `json:"amount"`
	Currency  string   `json:"currency"`
	Outcomes  []string `json:"outcomes"`
	SubmitTo  string   `json:"submit_to"`
}

type CheckoutRequest struct {
	BookingID string `json:"booking_id" binding:"required,uuid"`
	Status    string `json:"status" binding:"required,oneof=approved rejected"`
}
