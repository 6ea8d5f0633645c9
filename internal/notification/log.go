package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes confirmations to the log instead of sending them.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.With(zap.String("component", "notifier"))}
}

func (n *LogNotifier) SendBookingConfirmation(_ context.Context, c Confirmation) error {
	n.log.Info("booking confirmation",
		zap.String("booking_id", c.BookingID),
		zap.String("code", c.ConfirmationCode),
		zap.String("visitor", c.VisitorName),
		zap.String("phone", c.VisitorPhone),
		zap.String("spot", c.SpotLabel),
		zap.Time("start", c.StartTime),
		zap.Int64("amount", c.Amount),
	)
	return nil
}

func (n *LogNotifier) Close() error { return nil }
