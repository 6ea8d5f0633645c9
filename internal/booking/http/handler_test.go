package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
	"github.com/nekogravitycat/visitor-parking-backend/internal/booking"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/response"
)

type fakeService struct {
	admitErr  error
	gotAdmit  booking.AdmitRequest
	cancelRes *booking.CancelResult
}

func (f *fakeService) Admit(_ context.Context, payer auth.Identity, req booking.AdmitRequest) (*booking.AdmissionResult, error) {
	f.gotAdmit = req
	if f.admitErr != nil {
		return nil, f.admitErr
	}
	return &booking.AdmissionResult{
		Booking: &booking.Booking{
			ID: "bk-1", BlockID: req.BlockID, PayerID: payer.UserID, Amount: 10000,
			Status: booking.StatusPending, PaymentStatus: booking.PaymentPending,
			StartTime: time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		},
		PaymentURL: "https://pay.example/bk-1",
	}, nil
}

func (f *fakeService) Cancel(context.Context, string, auth.Identity, string) (*booking.CancelResult, error) {
	return f.cancelRes, nil
}

func (f *fakeService) GetByID(context.Context, string, auth.Identity) (*booking.Booking, error) {
	return nil, booking.ErrForbidden
}

func (f *fakeService) List(context.Context, auth.Identity, booking.Filter) ([]*booking.Booking, int, error) {
	return nil, 0, nil
}

func (f *fakeService) ExpirePending(context.Context, time.Duration) (int, error) { return 0, nil }

func newRouter(svc booking.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	withIdentity := func(c *gin.Context) {
		auth.SetIdentity(c, auth.Identity{UserID: "payer-1", Role: auth.RoleResident, BuildingID: "bld-1"})
		c.Next()
	}
	RegisterRoutes(r.Group("/v1"), NewHandler(svc), withIdentity)
	return r
}

const blockID = "5b0c9a4e-1f7e-4a8e-9c55-0b6f2a9d1e11"

func TestCreateBooking(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	body := `{"block_id":"` + blockID + `","visitor_name":"Somchai","vehicle_plate":"AB 1234"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CF-IPCountry", "JP")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp AdmissionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://pay.example/bk-1", resp.PaymentURL)
	assert.Equal(t, "pending", resp.Booking.Status)
	assert.Equal(t, "JP", svc.gotAdmit.OriginCountry)
}

func TestCreateBookingTypedErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantReason string
	}{
		{booking.ErrResourceUnavailable, http.StatusConflict, "resource_unavailable"},
		{booking.ErrPastWindow, http.StatusBadRequest, "past_window"},
		{booking.ErrCrossBuilding, http.StatusForbidden, "cross_building_access"},
		{booking.ErrPaymentInitFailed, http.StatusBadGateway, "payment_init_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.wantReason, func(t *testing.T) {
			r := newRouter(&fakeService{admitErr: tt.err})
			body := `{"block_id":"` + blockID + `","visitor_name":"A","vehicle_plate":"B"}`
			req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantReason, resp.Reason)
		})
	}
}

func TestCreateBookingRejectsBadBody(t *testing.T) {
	r := newRouter(&fakeService{})
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(`{"block_id":"not-a-uuid"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelBooking(t *testing.T) {
	r := newRouter(&fakeService{cancelRes: &booking.CancelResult{RefundAmount: 900, Tier: booking.TierStandard}})

	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/"+blockID+"/cancel", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"refund_amount":900,"tier":"standard"}`, w.Body.String())
}

func TestGetBookingForbidden(t *testing.T) {
	r := newRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings/"+blockID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
