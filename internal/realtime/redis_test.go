package realtime

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestRedisBridgeRoundTrip needs a reachable Redis at REDIS_URL.
func TestRedisBridgeRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not provided")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	type payload struct {
		N int `json:"n"`
	}
	hub := NewHub[payload]()
	bridge := NewRedisBridge(client, "gymblog-test", hub, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = bridge.Run(ctx) }()

	got := make(chan payload, 1)
	unsubscribe := hub.Subscribe("post-1", func(p payload) { got <- p })
	defer unsubscribe()

	// Give PSUBSCRIBE a moment to register before publishing.
	time.Sleep(200 * time.Millisecond)
	if err := bridge.Broadcast(ctx, "post-1", payload{N: 7}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case p := <-got:
		if p.N != 7 {
			t.Fatalf("payload = %+v", p)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for bridged message")
	}
}
