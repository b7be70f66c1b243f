package navigation

import "github.com/google/uuid"

// ZoneKind distinguishes the two geofence zones a trip carries.
type ZoneKind string

const (
	ZonePickup      ZoneKind = "pickup"
	ZoneDestination ZoneKind = "destination"
)

// DefaultZoneRadiusMeters is the geofence radius used when none is configured.
const DefaultZoneRadiusMeters = 500.0

// GeofenceZone is a circular zone around a point of interest. Visibility is
// derived from the current phase, never stored.
type GeofenceZone struct {
	ID           uuid.UUID  `json:"id"`
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius_meters"`
	Kind         ZoneKind   `json:"kind"`
}

// NewGeofenceZone creates a zone around the given center. A non-positive
// radius falls back to the default.
func NewGeofenceZone(kind ZoneKind, center Coordinate, radiusMeters float64) GeofenceZone {
	if radiusMeters <= 0 {
		radiusMeters = DefaultZoneRadiusMeters
	}
	return GeofenceZone{
		ID:           uuid.New(),
		Center:       center,
		RadiusMeters: radiusMeters,
		Kind:         kind,
	}
}

// ActiveZoneKind derives which zone kind is active for the given phase. At
// most one kind is active per phase; picking_up and the terminal phases have
// none.
func ActiveZoneKind(phase Phase) (ZoneKind, bool) {
	return phase.LegTarget()
}

// ZoneVisible reports whether a zone of the given kind should be shown on the
// map during the given phase.
func ZoneVisible(phase Phase, kind ZoneKind) bool {
	active, ok := ActiveZoneKind(phase)
	return ok && active == kind
}
