package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase_CanTransitionTo_HappyPath(t *testing.T) {
	chain := []Phase{
		PhaseToPickup,
		PhaseAtPickup,
		PhasePickingUp,
		PhaseToDestination,
		PhaseAtDestination,
		PhaseCompleted,
	}
	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, chain[i].CanTransitionTo(chain[i+1]),
			"expected %s -> %s to be valid", chain[i], chain[i+1])
	}
}

func TestPhase_CanTransitionTo_RejectsSkips(t *testing.T) {
	tests := []struct {
		from Phase
		to   Phase
	}{
		{PhaseToPickup, PhaseCompleted},
		{PhaseToPickup, PhasePickingUp},
		{PhaseToPickup, PhaseToDestination},
		{PhaseAtPickup, PhaseToDestination},
		{PhasePickingUp, PhaseAtDestination},
		{PhaseCompleted, PhaseToPickup},
		{PhaseCancelled, PhaseToPickup},
		{PhaseAtDestination, PhaseToPickup},
	}
	for _, tt := range tests {
		assert.False(t, tt.from.CanTransitionTo(tt.to),
			"expected %s -> %s to be invalid", tt.from, tt.to)
	}
}

func TestPhase_CancellableFromEveryNonTerminalPhase(t *testing.T) {
	for phase := range validTransitions {
		if phase.IsTerminal() {
			assert.False(t, phase.CanBeCancelled(), "terminal phase %s must not be cancellable", phase)
			continue
		}
		assert.True(t, phase.CanBeCancelled(), "phase %s should be cancellable", phase)
	}
}

func TestPhase_IsTerminal(t *testing.T) {
	assert.True(t, PhaseCompleted.IsTerminal())
	assert.True(t, PhaseCancelled.IsTerminal())
	assert.False(t, PhaseToPickup.IsTerminal())
	assert.False(t, PhaseAtDestination.IsTerminal())
}

func TestParsePhase(t *testing.T) {
	phase, err := ParsePhase("to_destination")
	require.NoError(t, err)
	assert.Equal(t, PhaseToDestination, phase)

	_, err = ParsePhase("teleporting")
	assert.Error(t, err)
}

func TestPhase_LegTarget(t *testing.T) {
	kind, ok := PhaseToPickup.LegTarget()
	require.True(t, ok)
	assert.Equal(t, ZonePickup, kind)

	kind, ok = PhaseAtDestination.LegTarget()
	require.True(t, ok)
	assert.Equal(t, ZoneDestination, kind)

	_, ok = PhasePickingUp.LegTarget()
	assert.False(t, ok)

	_, ok = PhaseCompleted.LegTarget()
	assert.False(t, ok)
}
