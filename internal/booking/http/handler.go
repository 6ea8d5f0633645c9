package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
	"github.com/nekogravitycat/visitor-parking-backend/internal/booking"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/request"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/response"
)

// Country headers set by the edge proxy, checked in order.
var countryHeaders = []string{"CF-IPCountry", "X-Country-Code"}

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	req.Normalize()

	viewer, _ := auth.GetIdentity(c)
	bookings, total, err := h.service.List(c.Request.Context(), viewer, booking.Filter{
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	payer, _ := auth.GetIdentity(c)
	res, err := h.service.Admit(c.Request.Context(), payer, booking.AdmitRequest{
		BlockID:       body.BlockID,
		VisitorName:   body.VisitorName,
		VisitorPhone:  body.VisitorPhone,
		VehiclePlate:  body.VehiclePlate,
		NationalID:    body.NationalID,
		OriginCountry: originCountry(c),
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, AdmissionResponse{
		Booking:    NewBookingResponse(res.Booking),
		PaymentURL: res.PaymentURL,
	})
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	viewer, _ := auth.GetIdentity(c)
	b, err := h.service.GetByID(c.Request.Context(), uri.ID, viewer)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	// The body is optional.
	var body CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	actor, _ := auth.GetIdentity(c)
	res, err := h.service.Cancel(c.Request.Context(), uri.ID, actor, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, CancelResponse{RefundAmount: res.RefundAmount, Tier: string(res.Tier)})
}

func originCountry(c *gin.Context) string {
	for _, h := range countryHeaders {
		if v := c.GetHeader(h); v != "" && v != "XX" {
			return v
		}
	}
	return ""
}
