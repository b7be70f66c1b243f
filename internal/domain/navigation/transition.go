package navigation

import "time"

// TransitionTrigger identifies what caused a phase transition request.
type TransitionTrigger string

const (
	TriggerGeofenceEnter TransitionTrigger = "geofence_enter"
	TriggerManual        TransitionTrigger = "manual"
	TriggerExternal      TransitionTrigger = "external"
)

// TransitionRequest is created on any event that could change phase and
// consumed exactly once by the state machine.
type TransitionRequest struct {
	From      Phase             `json:"from"`
	To        Phase             `json:"to"`
	Trigger   TransitionTrigger `json:"trigger"`
	CreatedAt time.Time         `json:"created_at"`
}

// TransitionResult reports the outcome of a transition request.
//
// A duplicate or mid-flight request for the already-active target settles with
// NoOp=true. A request against a torn-down machine settles with Unmounted=true
// rather than an error, so callers racing teardown do not crash. A committed
// transition whose side-effects partially failed carries the failure in
// SideEffectErr; the phase change itself stands.
type TransitionResult struct {
	Phase         Phase `json:"phase"`
	Previous      Phase `json:"previous"`
	NoOp          bool  `json:"no_op"`
	Unmounted     bool  `json:"unmounted"`
	SideEffectErr error `json:"-"`
}

// Committed reports whether this result represents a real, applied phase change.
func (r TransitionResult) Committed() bool {
	return !r.NoOp && !r.Unmounted
}
