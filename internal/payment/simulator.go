package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SimulatorGateway settles nothing. Its checkout URL points back at this
// server, where a caller posts the outcome as a simulator webhook.
type SimulatorGateway struct {
	baseURL string
}

func NewSimulatorGateway(publicBaseURL string) *SimulatorGateway {
	return &SimulatorGateway{baseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (g *SimulatorGateway) Mode() Mode { return ModeSimulator }

type simulatorReceipt struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

func (g *SimulatorGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	q := url.Values{}
	q.Set("booking_id", req.BookingID)
	q.Set("amount", strconv.FormatInt(req.Amount, 10))
	q.Set("currency", req.Currency)

	ref := "sim_" + req.BookingID
	raw, err := json.Marshal(simulatorReceipt{ID: ref, BookingID: req.BookingID, Amount: req.Amount, Currency: req.Currency})
	if err != nil {
		return nil, err
	}

	return &Intent{
		RedirectURL: g.baseURL + "/v1/payments/simulator/checkout?" + q.Encode(),
		GatewayRef:  ref,
		Raw:         raw,
	}, nil
}

func (g *SimulatorGateway) Refund(_ context.Context, req RefundRequest) error {
	if req.Payment == nil || req.Payment.Mode != ModeSimulator {
		return fmt.Errorf("simulator cannot refund a non-simulated payment")
	}
	if req.Amount <= 0 || (req.Payment.Amount > 0 && req.Amount > req.Payment.Amount) {
		return fmt.Errorf("invalid refund amount %d for payment of %d", req.Amount, req.Payment.Amount)
	}
	return nil
}

// SimulatorWebhook is the body accepted by the simulator webhook endpoint.
type SimulatorWebhook struct {
	BookingID string `json:"booking_id"`
	Status    Status `json:"status"`
}

func (g *SimulatorGateway) ParseWebhook(_ context.Context, in WebhookInput) (*Notice, error) {
	var body SimulatorWebhook
	if err := json.Unmarshal(in.Payload, &body); err != nil {
		return nil, ErrMalformedWebhook.WithCause(err)
	}
	if body.BookingID == "" {
		return nil, ErrMalformedWebhook.WithCause(fmt.Errorf("booking_id is required"))
	}
	if body.Status != StatusApproved && body.Status != StatusRejected {
		return nil, ErrMalformedWebhook.WithCause(fmt.Errorf("unsupported status %q", body.Status))
	}

	return &Notice{
		BookingID:  body.BookingID,
		Status:     body.Status,
		GatewayRef: "sim_" + body.BookingID,
		Raw:        json.RawMessage(in.Payload),
	}, nil
}
