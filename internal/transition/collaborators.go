package transition

import (
	"context"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
)

// MapRenderer is the map collaborator the coordinator drives. The core only
// ever calls it; nothing flows back except success or failure.
type MapRenderer interface {
	CenterOnDriver(ctx context.Context) error
	FlyTo(ctx context.Context, target navigation.Coordinate, zoom, bearing float64) error
	SetGeofenceVisible(ctx context.Context, zoneID string, visible bool) error
}

// VoiceAssistant speaks turn announcements. Fire-and-forget: errors are
// logged and swallowed by the coordinator.
type VoiceAssistant interface {
	Speak(ctx context.Context, text string) error
	Stop(ctx context.Context) error
}

// NoopRenderer is the explicit absent-capability implementation of MapRenderer.
type NoopRenderer struct{}

func (NoopRenderer) CenterOnDriver(context.Context) error { return nil }
func (NoopRenderer) FlyTo(context.Context, navigation.Coordinate, float64, float64) error {
	return nil
}
func (NoopRenderer) SetGeofenceVisible(context.Context, string, bool) error { return nil }

// NoopVoice is the explicit absent-capability implementation of VoiceAssistant.
type NoopVoice struct{}

func (NoopVoice) Speak(context.Context, string) error { return nil }
func (NoopVoice) Stop(context.Context) error          { return nil }
