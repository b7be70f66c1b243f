package navigation

import (
	"fmt"
	"math"
)

// Coordinate is an immutable geographic point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate creates a validated Coordinate.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks that both components are finite and within range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) ||
		math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("%w: coordinate components must be finite", ErrInvalidCoordinate)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90, got %v", ErrInvalidCoordinate, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180, got %v", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

// Rounded returns the coordinate rounded to six decimal places, the precision
// used for route cache keys (roughly 11cm at the equator).
func (c Coordinate) Rounded() Coordinate {
	return Coordinate{
		Latitude:  math.Round(c.Latitude*1e6) / 1e6,
		Longitude: math.Round(c.Longitude*1e6) / 1e6,
	}
}

// Key returns a stable string form of the rounded coordinate.
func (c Coordinate) Key() string {
	r := c.Rounded()
	return fmt.Sprintf("%.6f,%.6f", r.Latitude, r.Longitude)
}

// Location is a single sample from the location collaborator. Only the
// coordinate and timestamp are consumed by the core; the rest is carried for
// event payloads.
type Location struct {
	Coordinate
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp"`
}
