package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBridge fans values out across API instances through Redis pub/sub.
// Broadcast publishes to "<prefix>:<key>"; Run forwards every message on
// "<prefix>:*" into the local hub, including the ones this instance sent.
type RedisBridge[T any] struct {
	client *redis.Client
	prefix string
	hub    *Hub[T]
	logger *log.Logger
}

// NewRedisBridge wires a hub to a Redis channel namespace.
func NewRedisBridge[T any](client *redis.Client, prefix string, hub *Hub[T], logger *log.Logger) *RedisBridge[T] {
	if logger == nil {
		logger = log.Default()
	}
	return &RedisBridge[T]{client: client, prefix: prefix, hub: hub, logger: logger}
}

func (b *RedisBridge[T]) channel(key string) string {
	return b.prefix + ":" + key
}

// Broadcast publishes value for key. If Redis rejects the publish, the value is
// still delivered to local subscribers before the error is returned.
func (b *RedisBridge[T]) Broadcast(ctx context.Context, key string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode broadcast payload: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(key), payload).Err(); err != nil {
		b.hub.Publish(key, value)
		return fmt.Errorf("redis publish %s: %w", b.channel(key), err)
	}
	return nil
}

// Run consumes the channel namespace until ctx is cancelled.
func (b *RedisBridge[T]) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, b.prefix+":*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe %s: %w", b.prefix, err)
	}
	b.logger.Printf("realtime: bridge listening on %s:*", b.prefix)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			key := strings.TrimPrefix(msg.Channel, b.prefix+":")
			var value T
			if err := json.Unmarshal([]byte(msg.Payload), &value); err != nil {
				b.logger.Printf("realtime: drop malformed message on %s: %v", msg.Channel, err)
				continue
			}
			b.hub.Publish(key, value)
		}
	}
}
