package event

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster fans events out over a Redis Pub/Sub channel.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
}

func NewRedisBroadcaster(ctx context.Context, addr, password, channel string) (*RedisBroadcaster, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisBroadcaster{client: client, channel: channel}, nil
}

func (r *RedisBroadcaster) Broadcast(ctx context.Context, data []byte) error {
	return r.client.Publish(ctx, r.channel, data).Err()
}

func (r *RedisBroadcaster) Listen(ctx context.Context, fn func([]byte)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before reading messages.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription %s closed", r.channel)
			}
			fn([]byte(msg.Payload))
		}
	}
}

func (r *RedisBroadcaster) Close() error {
	return r.client.Close()
}
