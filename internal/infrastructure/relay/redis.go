package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const pingTimeout = 5 * time.Second

// redisTransport implements Transport using Redis pub/sub.
type redisTransport struct {
	client *redis.Client
}

// NewRedisTransport connects to Redis at addr and verifies the connection.
func NewRedisTransport(ctx context.Context, addr string) (Transport, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &redisTransport{client: client}, nil
}

func (t *redisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	return t.client.Publish(ctx, channel, payload).Err()
}

func (t *redisTransport) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := t.client.Subscribe(ctx, channel)

	// Wait for the subscription confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	payloads := make(chan []byte)

	go func() {
		defer pubsub.Close()
		defer close(payloads)

		msgChan := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					return
				}
				select {
				case payloads <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return payloads, nil
}

func (t *redisTransport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

func (t *redisTransport) Close() error {
	return t.client.Close()
}
