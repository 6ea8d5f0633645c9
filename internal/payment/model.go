package payment

import (
	"encoding/json"
	"time"

	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound             = apperror.New(apperror.KindNotFound, "payment_not_found", "payment not found")
	ErrGatewayNotConfigured = apperror.New(apperror.KindInvalidRequest, "gateway_not_configured", "payment gateway is not configured")
	ErrMalformedWebhook     = apperror.New(apperror.KindInvalidRequest, "malformed_webhook", "malformed webhook payload")
	ErrGatewayMismatch      = apperror.New(apperror.KindConflict, "gateway_mismatch", "payment belongs to another gateway")
	ErrGatewayFailure       = apperror.New(apperror.KindGatewayFailure, "gateway_error", "payment gateway request failed")
	ErrRefundUnavailable    = apperror.New(apperror.KindInternal, "refund_reference_missing", "no gateway payment id recorded for refund")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusRefunded Status = "refunded"
)

// Mode records which gateway variant created a payment. Refunds always go
// back through the same variant.
type Mode string

const (
	ModeSimulator Mode = "simulator"
	ModeStripe    Mode = "stripe"
	ModeOmise     Mode = "omise"
)

// ParseMode maps a webhook kind or stored value onto a Mode.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(s); m {
	case ModeSimulator, ModeStripe, ModeOmise:
		return m, true
	}
	return "", false
}

// Payment is the single payment record of a booking.
type Payment struct {
	ID          string
	BookingID   string
	Status      Status
	Mode        Mode
	Amount      int64
	GatewayRef  string
	RawResponse json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
