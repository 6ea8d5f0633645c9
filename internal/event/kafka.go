package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KafkaBroadcaster produces to one topic and consumes it without a
// consumer group, so every instance reads every record.
type KafkaBroadcaster struct {
	client *kgo.Client
	topic  string
	log    *zap.Logger
}

func NewKafkaBroadcaster(ctx context.Context, brokers []string, topic string, log *zap.Logger) (*KafkaBroadcaster, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID("visitor-parking-bus"),
		kgo.DefaultProduceTopic(topic),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}

	return &KafkaBroadcaster{client: client, topic: topic, log: log}, nil
}

func (k *KafkaBroadcaster) Broadcast(ctx context.Context, data []byte) error {
	rec := &kgo.Record{
		Topic: k.topic,
		Value: data,
		Headers: []kgo.RecordHeader{
			{Key: "content_type", Value: []byte("application/json")},
		},
	}
	return k.client.ProduceSync(ctx, rec).FirstErr()
}

func (k *KafkaBroadcaster) Listen(ctx context.Context, fn func([]byte)) error {
	for {
		fetches := k.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			k.log.Warn("kafka fetch error",
				zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
		})
		fetches.EachRecord(func(r *kgo.Record) {
			fn(r.Value)
		})
	}
}

func (k *KafkaBroadcaster) Close() error {
	k.client.Close()
	return nil
}
