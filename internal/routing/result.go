package routing

import "github.com/ridelink/service-navigation/internal/domain/navigation"

// RouteResult is the outcome of a route calculation between two coordinates.
// IsFallback marks a straight-line approximation produced when the road
// network backend was unavailable.
type RouteResult struct {
	DistanceMeters  float64                 `json:"distance_meters"`
	DurationSeconds float64                 `json:"duration_seconds"`
	Geometry        []navigation.Coordinate `json:"geometry"`
	IsFallback      bool                    `json:"is_fallback"`
}
