package payment

import (
	"context"
	"encoding/json"
	"net/http"
)

// Gateway is implemented by SimulatorGateway, StripeGateway and OmiseGateway.
type Gateway interface {
	Mode() Mode
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	Refund(ctx context.Context, req RefundRequest) error
	ParseWebhook(ctx context.Context, in WebhookInput) (*Notice, error)
}

type IntentRequest struct {
	BookingID        string
	ConfirmationCode string
	Amount           int64
	Currency         string
	Description      string
	PayerEmail       string
}

// Intent is where the payer should be sent to pay.
type Intent struct {
	RedirectURL string
	GatewayRef  string
	Raw         json.RawMessage
}

type RefundRequest struct {
	Payment *Payment
	Amount  int64
	Reason  string
}

// WebhookInput is an inbound gateway notification as received over HTTP.
type WebhookInput struct {
	Payload []byte
	Header  http.Header
}

// Notice is a webhook normalized to the booking it concerns. Ignored is set
// for notifications that carry no payment outcome.
type Notice struct {
	BookingID  string
	Status     Status
	GatewayRef string
	Amount     int64
	Raw        json.RawMessage
	Ignored    bool
}
