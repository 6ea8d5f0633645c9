package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/visitor-parking-backend/internal/payment"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/response"
	"github.com/nekogravitycat/visitor-parking-backend/internal/webhook"
)

type fakeProcessor struct {
	kind string
	in   payment.WebhookInput
	res  *webhook.Result
	err  error
}

func (f *fakeProcessor) Process(_ context.Context, kind string, in payment.WebhookInput) (*webhook.Result, error) {
	f.kind, f.in = kind, in
	return f.res, f.err
}

func newRouter(p Processor, simulator bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(p, simulator))
	return r
}

const bookingID = "0b7c1c9e-6a1f-4e8a-9d1e-2f3a4b5c6d7e"

func TestReceivePassesRawBodyAndHeaders(t *testing.T) {
	p := &fakeProcessor{res: &webhook.Result{BookingID: bookingID, Status: "approved", Idempotent: true}}
	r := newRouter(p, false)

	body := `{"id":"evt_1","type":"checkout.session.completed"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stripe", p.kind)
	assert.Equal(t, body, string(p.in.Payload))
	assert.Equal(t, "t=1,v1=abc", p.in.Header.Get("Stripe-Signature"))

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Idempotent)
	assert.Equal(t, "approved", resp.Status)
}

func TestReceiveRendersTypedErrors(t *testing.T) {
	p := &fakeProcessor{err: payment.ErrMalformedWebhook}
	r := newRouter(p, false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/webhooks/omise", strings.NewReader("nope")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "malformed_webhook", resp.Reason)
}

func TestReceiveRejectsOversizedBody(t *testing.T) {
	p := &fakeProcessor{}
	r := newRouter(p, false)

	big := strings.Repeat("a", maxWebhookBody+1)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(big)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, p.kind)
}

func TestSimulatorCheckout(t *testing.T) {
	p := &fakeProcessor{res: &webhook.Result{BookingID: bookingID, Status: "approved"}}
	r := newRouter(p, true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/payments/simulator/checkout?booking_id="+bookingID+"&amount=10000&currency=thb", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var page CheckoutPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(10000), page.Amount)
	assert.Equal(t, []string{"approved", "rejected"}, page.Outcomes)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/simulator/checkout",
		strings.NewReader(`{"booking_id":"`+bookingID+`","status":"approved"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "simulator", p.kind)
	assert.JSONEq(t, `{"booking_id":"`+bookingID+`","status":"approved"}`, string(p.in.Payload))
}

func TestSimulatorCheckoutValidation(t *testing.T) {
	r := newRouter(&fakeProcessor{}, true)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/simulator/checkout",
		strings.NewReader(`{"booking_id":"`+bookingID+`","status":"refunded"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulatorRoutesDisabled(t *testing.T) {
	p := &fakeProcessor{res: &webhook.Result{BookingID: bookingID, Status: "approved"}}
	r := newRouter(p, false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/payments/simulator/checkout?booking_id="+bookingID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// An unsigned simulator delivery must not reach the reconciler.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/webhooks/simulator",
		strings.NewReader(`{"booking_id":"`+bookingID+`","status":"approved"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "gateway_not_configured")
	assert.Empty(t, p.kind)
}
