package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZoneVisible_DerivedFromPhase(t *testing.T) {
	allPhases := []Phase{
		PhaseWaiting, PhaseToPickup, PhaseAtPickup, PhasePickingUp,
		PhaseToDestination, PhaseAtDestination, PhaseCompleted, PhaseCancelled,
	}

	for _, phase := range allPhases {
		pickupVisible := ZoneVisible(phase, ZonePickup)
		destVisible := ZoneVisible(phase, ZoneDestination)

		// The two zones are never visible at the same time.
		assert.False(t, pickupVisible && destVisible, "phase %s shows both zones", phase)

		switch phase {
		case PhaseToPickup, PhaseAtPickup:
			assert.True(t, pickupVisible, "phase %s should show pickup zone", phase)
		case PhaseToDestination, PhaseAtDestination:
			assert.True(t, destVisible, "phase %s should show destination zone", phase)
		default:
			assert.False(t, pickupVisible, "phase %s should hide pickup zone", phase)
			assert.False(t, destVisible, "phase %s should hide destination zone", phase)
		}
	}
}

func TestNewGeofenceZone_DefaultRadius(t *testing.T) {
	zone := NewGeofenceZone(ZonePickup, Coordinate{Latitude: 1, Longitude: 2}, 0)
	assert.Equal(t, DefaultZoneRadiusMeters, zone.RadiusMeters)
	assert.Equal(t, ZonePickup, zone.Kind)
	assert.NotEqual(t, zone.ID.String(), "00000000-0000-0000-0000-000000000000")

	custom := NewGeofenceZone(ZoneDestination, Coordinate{}, 250)
	assert.Equal(t, 250.0, custom.RadiusMeters)
}
