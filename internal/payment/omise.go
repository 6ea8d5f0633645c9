package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// OmiseConfig holds Omise keys and the redirect source used for checkout.
type OmiseConfig struct {
	PublicKey     string
	SecretKey     string
	SourceType    string
	PublicBaseURL string
}

// OmiseGateway charges through an Omise redirect source (internet or
// mobile banking) and sends the payer to the charge's authorize URI.
type OmiseGateway struct {
	client     *omise.Client
	sourceType string
	baseURL    string
}

func NewOmiseGateway(cfg OmiseConfig) (*OmiseGateway, error) {
	c, err := omise.NewClient(cfg.PublicKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("create omise client: %w", err)
	}
	return &OmiseGateway{
		client:     c,
		sourceType: cfg.SourceType,
		baseURL:    strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (g *OmiseGateway) Mode() Mode { return ModeOmise }

func (g *OmiseGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	src := &omise.Source{}
	if err := g.client.Do(src, &operations.CreateSource{
		Type:     g.sourceType,
		Amount:   req.Amount,
		Currency: req.Currency,
	}); err != nil {
		return nil, ErrGatewayFailure.WithCause(fmt.Errorf("create source: %w", err))
	}

	ch := &omise.Charge{}
	if err := g.client.Do(ch, &operations.CreateCharge{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Source:      src.ID,
		Description: req.Description,
		ReturnURI:   g.baseURL + "/v1/bookings/" + req.BookingID + "?checkout=return",
		Metadata: map[string]any{
			"booking_id":        req.BookingID,
			"confirmation_code": req.ConfirmationCode,
		},
	}); err != nil {
		return nil, ErrGatewayFailure.WithCause(fmt.Errorf("create charge: %w", err))
	}

	raw, err := json.Marshal(ch)
	if err != nil {
		return nil, fmt.Errorf("encode charge: %w", err)
	}
	return &Intent{RedirectURL: ch.AuthorizeURI, GatewayRef: ch.ID, Raw: raw}, nil
}

func (g *OmiseGateway) Refund(_ context.Context, req RefundRequest) error {
	if req.Payment == nil {
		return ErrRefundUnavailable
	}
	chargeID := chargeIDFromRaw(req.Payment.RawResponse)
	if chargeID == "" {
		chargeID = req.Payment.GatewayRef
	}
	if !strings.HasPrefix(chargeID, "chrg_") {
		return ErrRefundUnavailable.WithCause(fmt.Errorf("booking %s", req.Payment.BookingID))
	}

	rf := &omise.Refund{}
	if err := g.client.Do(rf, &operations.CreateRefund{
		ChargeID: chargeID,
		Amount:   req.Amount,
		Metadata: map[string]any{"booking_id": req.Payment.BookingID, "reason": req.Reason},
	}); err != nil {
		return ErrGatewayFailure.WithCause(fmt.Errorf("create refund: %w", err))
	}
	return nil
}

type omiseWebhook struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// ParseWebhook ignores everything in the body except the event id. The
// event and then the charge are fetched from Omise.
func (g *OmiseGateway) ParseWebhook(_ context.Context, in WebhookInput) (*Notice, error) {
	var inc omiseWebhook
	if err := json.Unmarshal(in.Payload, &inc); err != nil || inc.ID == "" {
		return nil, ErrMalformedWebhook.WithCause(fmt.Errorf("missing event id"))
	}

	ev := &omise.Event{}
	if err := g.client.Do(ev, &operations.RetrieveEvent{EventID: inc.ID}); err != nil {
		return nil, ErrGatewayFailure.WithCause(fmt.Errorf("retrieve event %s: %w", inc.ID, err))
	}
	if !strings.HasPrefix(ev.Key, "charge.") {
		return &Notice{Ignored: true}, nil
	}

	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("encode event data: %w", err)
	}
	chargeID := chargeIDFromRaw(data)
	if chargeID == "" {
		return &Notice{Ignored: true}, nil
	}

	ch := &omise.Charge{}
	if err := g.client.Do(ch, &operations.RetrieveCharge{ChargeID: chargeID}); err != nil {
		return nil, ErrGatewayFailure.WithCause(fmt.Errorf("retrieve charge %s: %w", chargeID, err))
	}

	raw, err := json.Marshal(ch)
	if err != nil {
		return nil, fmt.Errorf("encode charge: %w", err)
	}

	bookingID, _ := ch.Metadata["booking_id"].(string)
	if bookingID == "" {
		return nil, ErrMalformedWebhook.WithCause(fmt.Errorf("charge %s carries no booking id", ch.ID))
	}

	return &Notice{
		BookingID:  bookingID,
		Status:     chargeStatus(string(ch.Status)),
		GatewayRef: ch.ID,
		Amount:     ch.Amount,
		Raw:        raw,
	}, nil
}

func chargeStatus(s string) Status {
	switch s {
	case "successful":
		return StatusApproved
	case "failed", "expired", "reversed":
		return StatusRejected
	default:
		return StatusPending
	}
}

func chargeIDFromRaw(raw json.RawMessage) string {
	var ch struct {
		Object string `json:"object"`
		ID     string `json:"id"`
	}
	if err := json.Unmarshal(raw, &ch); err != nil {
		return ""
	}
	if ch.Object == "charge" || strings.HasPrefix(ch.ID, "chrg_") {
		return ch.ID
	}
	return ""
}
