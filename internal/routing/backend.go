package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
)

// DefaultBackendTimeout bounds a single routing backend call. The engine
// degrades to the straight-line fallback on expiry, so this stays well below
// the retry client's hard deadline.
const DefaultBackendTimeout = 10 * time.Second

// Backend computes a road-network route between two coordinates. Any error is
// recovered by the Engine via the fallback path and never surfaced to callers.
type Backend interface {
	FetchRoute(ctx context.Context, from, to navigation.Coordinate) (RouteResult, error)
}

// routeResponse is the wire shape the routing backend returns. Anything that
// does not match is treated as a backend failure.
type routeResponse struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	Geometry        []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"geometry"`
}

// HTTPBackend is the HTTP implementation of Backend.
type HTTPBackend struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPBackend creates a routing backend client against the given base URL.
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = DefaultBackendTimeout
	}
	return &HTTPBackend{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchRoute requests a road-network route from the backend.
func (b *HTTPBackend) FetchRoute(ctx context.Context, from, to navigation.Coordinate) (RouteResult, error) {
	query := url.Values{}
	query.Set("from_lat", fmt.Sprintf("%.6f", from.Latitude))
	query.Set("from_lng", fmt.Sprintf("%.6f", from.Longitude))
	query.Set("to_lat", fmt.Sprintf("%.6f", to.Latitude))
	query.Set("to_lng", fmt.Sprintf("%.6f", to.Longitude))

	endpoint := b.baseURL + "/route?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return RouteResult{}, fmt.Errorf("build route request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return RouteResult{}, fmt.Errorf("routing backend request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return RouteResult{}, fmt.Errorf("routing backend returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return RouteResult{}, fmt.Errorf("read routing backend response: %w", err)
	}

	var parsed routeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return RouteResult{}, fmt.Errorf("parse routing backend response: %w", err)
	}
	if parsed.DistanceMeters <= 0 || parsed.DurationSeconds <= 0 || len(parsed.Geometry) < 2 {
		return RouteResult{}, fmt.Errorf("routing backend response malformed")
	}

	geometry := make([]navigation.Coordinate, 0, len(parsed.Geometry))
	for _, p := range parsed.Geometry {
		geometry = append(geometry, navigation.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude})
	}

	return RouteResult{
		DistanceMeters:  parsed.DistanceMeters,
		DurationSeconds: parsed.DurationSeconds,
		Geometry:        geometry,
		IsFallback:      false,
	}, nil
}
