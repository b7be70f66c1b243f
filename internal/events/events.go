package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicLocationEvents   = "location.events"
	TopicNavigationEvents = "navigation.events"
)

// Event types.
const (
	LocationUpdated        = "location.updated"
	NavigationPhaseChanged = "navigation.phase_changed"
)

// LocationUpdatedEvent carries one driver location sample.
type LocationUpdatedEvent struct {
	DriverID  uuid.UUID `json:"driver_id"`
	TripID    uuid.UUID `json:"trip_id,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NavigationPhaseChangedEvent is published after every committed phase
// transition.
type NavigationPhaseChangedEvent struct {
	TripID     uuid.UUID `json:"trip_id"`
	DriverID   uuid.UUID `json:"driver_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Trigger    string    `json:"trigger"`
	IsFallback bool      `json:"is_fallback_route,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
