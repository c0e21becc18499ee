package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

// ErrNotFound is returned when upstream has no listing for the venue.
var ErrNotFound = errors.New("places: not found")

// Result contains the data used to enrich a gym record.
type Result struct {
	Address      *string
	Rating       *float64
	ReviewsCount int
	Location     *domain.Location
}

// Client defines the contract for querying the upstream places API.
type Client interface {
	Lookup(ctx context.Context, name string) (*Result, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *log.Logger
}

// NewHTTPClient constructs a new HTTP-backed places client. The transport may
// be nil; cmd/server passes an otelhttp transport so lookups are traced.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, transport http.RoundTripper, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse places url: %w", err)
	}
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout, Transport: transport},
		logger:  logger,
	}, nil
}

// Lookup retrieves place details by venue name.
func (c *HTTPClient) Lookup(ctx context.Context, name string) (*Result, error) {
	rel := &url.URL{Path: "/places"}
	q := rel.Query()
	q.Set("name", name)
	rel.RawQuery = q.Encode()
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode places response: %w", err)
		}
		return convertToResult(payload), nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		c.logger.Printf("places: unexpected status %d for name %q", resp.StatusCode, name)
		return nil, fmt.Errorf("places: upstream returned %d", resp.StatusCode)
	}
}

type apiResponse struct {
	Name             string           `json:"name"`
	Address          *string          `json:"formattedAddress"`
	Rating           *float64         `json:"rating"`
	UserRatingsTotal *int             `json:"userRatingsTotal"`
	Location         *locationPayload `json:"location"`
}

type locationPayload struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func convertToResult(payload apiResponse) *Result {
	result := &Result{}

	if payload.Address != nil {
		if addr := strings.TrimSpace(*payload.Address); addr != "" {
			result.Address = &addr
		}
	}
	if payload.Rating != nil {
		rating := *payload.Rating
		switch {
		case math.IsNaN(rating), rating < 0:
			rating = 0
		case rating > 5:
			rating = 5
		}
		result.Rating = &rating
	}
	if payload.UserRatingsTotal != nil && *payload.UserRatingsTotal > 0 {
		result.ReviewsCount = *payload.UserRatingsTotal
	}
	if payload.Location != nil && payload.Location.Lat != nil && payload.Location.Lng != nil {
		result.Location = &domain.Location{Lat: *payload.Location.Lat, Lng: *payload.Location.Lng}
	}
	return result
}
