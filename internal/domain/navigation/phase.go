package navigation

import "fmt"

// Phase represents the current leg of a trip's navigation lifecycle. It is the
// sole source of truth for which geofence zone and which route leg is relevant.
type Phase string

const (
	PhaseWaiting       Phase = "waiting"
	PhaseToPickup      Phase = "to_pickup"
	PhaseAtPickup      Phase = "at_pickup"
	PhasePickingUp     Phase = "picking_up"
	PhaseToDestination Phase = "to_destination"
	PhaseAtDestination Phase = "at_destination"
	PhaseCompleted     Phase = "completed"
	PhaseCancelled     Phase = "cancelled"
)

// validTransitions defines the state machine for navigation phase transitions.
// Every non-terminal phase may transition to cancelled.
var validTransitions = map[Phase][]Phase{
	PhaseWaiting:       {PhaseToPickup, PhaseCancelled},
	PhaseToPickup:      {PhaseAtPickup, PhaseCancelled},
	PhaseAtPickup:      {PhasePickingUp, PhaseCancelled},
	PhasePickingUp:     {PhaseToDestination, PhaseCancelled},
	PhaseToDestination: {PhaseAtDestination, PhaseCancelled},
	PhaseAtDestination: {PhaseCompleted, PhaseCancelled},
	PhaseCompleted:     {},
	PhaseCancelled:     {},
}

// IsValid returns true if the phase is a recognized navigation phase.
func (p Phase) IsValid() bool {
	_, exists := validTransitions[p]
	return exists
}

// CanTransitionTo returns true if a transition from this phase to the target is allowed.
func (p Phase) CanTransitionTo(target Phase) bool {
	allowed, exists := validTransitions[p]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this phase.
func (p Phase) IsTerminal() bool {
	allowed, exists := validTransitions[p]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// CanBeCancelled returns true if the trip can be cancelled from this phase.
func (p Phase) CanBeCancelled() bool {
	return p.CanTransitionTo(PhaseCancelled)
}

// IsEnRoute returns true for the two driving legs, the only phases during
// which a route leg and a geofence zone are relevant.
func (p Phase) IsEnRoute() bool {
	return p == PhaseToPickup || p == PhaseToDestination
}

// LegTarget returns which zone kind the current leg is driving toward, and
// false when the phase has no leg target.
func (p Phase) LegTarget() (ZoneKind, bool) {
	switch p {
	case PhaseToPickup, PhaseAtPickup:
		return ZonePickup, true
	case PhaseToDestination, PhaseAtDestination:
		return ZoneDestination, true
	default:
		return "", false
	}
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// ParsePhase converts a string to a Phase, returning an error if invalid.
func ParsePhase(s string) (Phase, error) {
	phase := Phase(s)
	if !phase.IsValid() {
		return "", fmt.Errorf("invalid navigation phase: %s", s)
	}
	return phase, nil
}
