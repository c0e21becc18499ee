package places

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"
)

// TestHTTPClientSmoke checks that the client can parse at least one record
// from a live places service, such as cmd/places-mock.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("PLACES_URL")
	if baseURL == "" {
		t.Skip("PLACES_URL not provided")
	}
	apiKey := os.Getenv("PLACES_API_KEY")
	client, err := NewHTTPClient(baseURL, apiKey, 3*time.Second, nil, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	name := os.Getenv("PLACES_SMOKE_NAME")
	if name == "" {
		name = "Iron Temple"
	}
	result, err := client.Lookup(ctx, name)
	if err != nil {
		t.Fatalf("lookup mock data: %v", err)
	}
	if result.Rating == nil && result.Address == nil {
		t.Fatalf("unexpected places payload: %+v", result)
	}
}
