package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds Stripe credentials and the URLs the payer returns to.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PublicBaseURL string
}

// StripeGateway takes payments through Stripe Checkout Sessions.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	baseURL       string
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

func (g *StripeGateway) Mode() Mode { return ModeStripe }

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.BookingID),
		SuccessURL:        stripe.String(g.baseURL + "/v1/bookings/" + req.BookingID + "?checkout=success"),
		CancelURL:         stripe.String(g.baseURL + "/v1/bookings/" + req.BookingID + "?checkout=cancelled"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"booking_id": req.BookingID},
		},
	}
	if req.PayerEmail != "" {
		params.CustomerEmail = stripe.String(req.PayerEmail)
	}
	params.Context = ctx
	params.AddMetadata("booking_id", req.BookingID)
	params.AddMetadata("confirmation_code", req.ConfirmationCode)
	params.SetIdempotencyKey("checkout-" + req.BookingID)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, ErrGatewayFailure.WithCause(fmt.Errorf("create checkout session: %w", err))
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode checkout session: %w", err)
	}
	return &Intent{RedirectURL: s.URL, GatewayRef: s.ID, Raw: raw}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, req RefundRequest) error {
	if req.Payment == nil {
		return ErrRefundUnavailable
	}
	piID := paymentIntentFromRaw(req.Payment.RawResponse)
	if piID == "" {
		return ErrRefundUnavailable.WithCause(fmt.Errorf("booking %s", req.Payment.BookingID))
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(piID),
		Amount:        stripe.Int64(req.Amount),
	}
	params.Context = ctx
	params.AddMetadata("booking_id", req.Payment.BookingID)
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}
	params.SetIdempotencyKey("refund-" + req.Payment.BookingID)

	if _, err := g.api.Refunds.New(params); err != nil {
		return ErrGatewayFailure.WithCause(fmt.Errorf("create refund: %w", err))
	}
	return nil
}

// ParseWebhook verifies the signature, then re-reads the session from
// Stripe. The body only tells us which session to look at.
func (g *StripeGateway) ParseWebhook(ctx context.Context, in WebhookInput) (*Notice, error) {
	event, err := webhook.ConstructEventWithOptions(
		in.Payload,
		in.Header.Get("Stripe-Signature"),
		g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, ErrMalformedWebhook.WithCause(err)
	}

	switch string(event.Type) {
	case "checkout.session.completed",
		"checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed",
		"checkout.session.expired":
	default:
		return &Notice{Ignored: true}, nil
	}

	var ref struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Raw, &ref); err != nil || ref.ID == "" {
		return nil, ErrMalformedWebhook.WithCause(fmt.Errorf("event %s has no session id", event.ID))
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")
	s, err := g.api.CheckoutSessions.Get(ref.ID, params)
	if err != nil {
		return nil, ErrGatewayFailure.WithCause(fmt.Errorf("retrieve checkout session %s: %w", ref.ID, err))
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode checkout session: %w", err)
	}

	bookingID := s.ClientReferenceID
	if bookingID == "" {
		bookingID = s.Metadata["booking_id"]
	}
	if bookingID == "" {
		return nil, ErrMalformedWebhook.WithCause(fmt.Errorf("session %s carries no booking id", s.ID))
	}

	return &Notice{
		BookingID:  bookingID,
		Status:     sessionStatus(s, string(event.Type)),
		GatewayRef: s.ID,
		Amount:     s.AmountTotal,
		Raw:        raw,
	}, nil
}

func sessionStatus(s *stripe.CheckoutSession, eventType string) Status {
	switch {
	case s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return StatusApproved
	case s.Status == stripe.CheckoutSessionStatusExpired, eventType == "checkout.session.async_payment_failed":
		return StatusRejected
	default:
		return StatusPending
	}
}

// paymentIntentFromRaw digs the payment intent id out of a stored checkout
// session, expanded or not.
func paymentIntentFromRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s struct {
		Object        string          `json:"object"`
		ID            string          `json:"id"`
		PaymentIntent json.RawMessage `json:"payment_intent"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	if s.Object == "payment_intent" {
		return s.ID
	}
	if len(s.PaymentIntent) == 0 || string(s.PaymentIntent) == "null" {
		return ""
	}

	var id string
	if err := json.Unmarshal(s.PaymentIntent, &id); err == nil {
		return id
	}
	var pi struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(s.PaymentIntent, &pi); err == nil {
		return pi.ID
	}
	return ""
}
