package notification

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns the notifier named by driver ("log" or "amqp").
func New(driver, amqpURL, exchange string, log *zap.Logger) (Notifier, error) {
	switch driver {
	case "", "log":
		return NewLogNotifier(log), nil
	case "amqp":
		return NewAMQPNotifier(amqpURL, exchange)
	default:
		return nil, fmt.Errorf("unknown notify driver %q", driver)
	}
}
