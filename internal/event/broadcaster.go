package event

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Broadcaster moves encoded events between instances. Delivery is best
// effort; Listen also receives messages this instance broadcast.
type Broadcaster interface {
	Broadcast(ctx context.Context, data []byte) error
	Listen(ctx context.Context, fn func(data []byte)) error
	Close() error
}

// NoopBroadcaster is used by single-instance deployments.
type NoopBroadcaster struct{}

func (NoopBroadcaster) Broadcast(context.Context, []byte) error { return nil }

func (NoopBroadcaster) Listen(ctx context.Context, _ func([]byte)) error {
	<-ctx.Done()
	return nil
}

func (NoopBroadcaster) Close() error { return nil }

// BroadcasterConfig selects and configures a transport.
type BroadcasterConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisChannel  string
	AMQPURL       string
	AMQPExchange  string
	KafkaBrokers  []string
	KafkaTopic    string
}

// NewBroadcaster builds the transport named by cfg.Driver.
func NewBroadcaster(ctx context.Context, cfg BroadcasterConfig, log *zap.Logger) (Broadcaster, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return NoopBroadcaster{}, nil
	case "redis":
		return NewRedisBroadcaster(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisChannel)
	case "amqp":
		return NewAMQPBroadcaster(cfg.AMQPURL, cfg.AMQPExchange)
	case "kafka":
		return NewKafkaBroadcaster(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
	default:
		return nil, fmt.Errorf("unknown broadcast driver %q", cfg.Driver)
	}
}
