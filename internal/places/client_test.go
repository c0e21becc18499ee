package places

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(srv.URL, "test-key", 2*time.Second, nil, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestHTTPClient_Lookup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/places" || r.URL.Query().Get("name") != "Iron Temple" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"Iron Temple","formattedAddress":" 1 Main St ","rating":4.4,"userRatingsTotal":87,"location":{"lat":51.5,"lng":-0.1}}`)
	})

	result, err := client.Lookup(context.Background(), "Iron Temple")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if result.Address == nil || *result.Address != "1 Main St" {
		t.Fatalf("address = %v", result.Address)
	}
	if result.Rating == nil || *result.Rating != 4.4 || result.ReviewsCount != 87 {
		t.Fatalf("rating = %v reviews = %d", result.Rating, result.ReviewsCount)
	}
	if result.Location == nil || result.Location.Lat != 51.5 {
		t.Fatalf("location = %+v", result.Location)
	}
}

func TestHTTPClient_Statuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"upstream failure", http.StatusBadGateway, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := client.Lookup(context.Background(), "anything")
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && errors.Is(err, ErrNotFound) {
				t.Fatalf("non-404 status mapped to ErrNotFound")
			}
		})
	}
}
