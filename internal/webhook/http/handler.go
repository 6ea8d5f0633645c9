package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/visitor-parking-backend/internal/payment"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/response"
	"github.com/nekogravitycat/visitor-parking-backend/internal/webhook"
)

// Gateways sign small JSON documents; anything larger is not a notification.
const maxWebhookBody = 64 << 10

const checkoutPath = "/v1/payments/simulator/checkout"

type Processor interface {
	Process(ctx context.Context, kind string, in payment.WebhookInput) (*webhook.Result, error)
}

type Handler struct {
	processor        Processor
	simulatorEnabled bool
}

// NewHandler builds the webhook handler. With simulatorEnabled false the
// simulator accepts no deliveries, since its notifications are unsigned.
func NewHandler(processor Processor, simulatorEnabled bool) *Handler {
	return &Handler{processor: processor, simulatorEnabled: simulatorEnabled}
}

// Receive accepts a delivery from the gateway named by the :kind segment.
// Signature checks need the body byte for byte, so it is read raw.
func (h *Handler) Receive(c *gin.Context) {
	kind := c.Param("kind")
	if kind == string(payment.ModeSimulator) && !h.simulatorEnabled {
		response.Error(c, payment.ErrGatewayNotConfigured.WithCause(errors.New("simulator webhooks are disabled")))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	res, err := h.processor.Process(c.Request.Context(), kind, payment.WebhookInput{
		Payload: body,
		Header:  c.Request.Header.Clone(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{BookingID: res.BookingID, Status: res.Status, Idempotent: res.Idempotent})
}

// CheckoutPage describes the simulator's stand-in for a hosted payment page.
func (h *Handler) CheckoutPage(c *gin.Context) {
	var q CheckoutQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, CheckoutPage{
		BookingID: q.BookingID,
		Amount:    q.Amount,
		Currency:  q.Currency,
		Outcomes:  []string{string(payment.StatusApproved), string(payment.StatusRejected)},
		SubmitTo:  checkoutPath,
	})
}

// Checkout completes a simulated payment by feeding the outcome through
// the simulator webhook path.
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	payload, err := json.Marshal(payment.SimulatorWebhook{
		BookingID: req.BookingID,
		Status:    payment.Status(req.Status),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.processor.Process(c.Request.Context(), string(payment.ModeSimulator), payment.WebhookInput{Payload: payload})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{BookingID: res.BookingID, Status: res.Status, Idempotent: res.Idempotent})
}
