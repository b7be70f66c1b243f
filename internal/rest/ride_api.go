package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ridelink/service-navigation/internal/domain"
	"github.com/ridelink/service-navigation/internal/domain/navigation"
)

// RideAPI is the thin adapter over the ride/driver backend. Endpoint bodies
// are deliberately minimal; the retry/backoff policy of the underlying client
// is what matters here.
type RideAPI struct {
	client *Client
}

// NewRideAPI creates a RideAPI over the given client.
func NewRideAPI(client *Client) *RideAPI {
	return &RideAPI{client: client}
}

type confirmPhaseRequest struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Trigger   string    `json:"trigger"`
	Timestamp time.Time `json:"timestamp"`
}

// ConfirmPhase reports a committed phase change to the backend.
func (a *RideAPI) ConfirmPhase(ctx context.Context, tripID uuid.UUID, from, to navigation.Phase, trigger navigation.TransitionTrigger) error {
	if tripID == uuid.Nil {
		return domain.NewValidationError("trip ID is required")
	}
	body := confirmPhaseRequest{
		From:      from.String(),
		To:        to.String(),
		Trigger:   string(trigger),
		Timestamp: time.Now().UTC(),
	}
	path := fmt.Sprintf("/api/v1/trips/%s/phase", tripID)
	return a.client.Do(ctx, http.MethodPost, path, body, nil)
}

type updateLocationRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// UpdateLocation pushes the driver's latest location sample to the backend.
func (a *RideAPI) UpdateLocation(ctx context.Context, driverID uuid.UUID, loc navigation.Location) error {
	if driverID == uuid.Nil {
		return domain.NewValidationError("driver ID is required")
	}
	if err := loc.Validate(); err != nil {
		return err
	}
	body := updateLocationRequest{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Heading:   loc.Heading,
		Speed:     loc.Speed,
		Accuracy:  loc.Accuracy,
		Timestamp: loc.Timestamp,
	}
	path := fmt.Sprintf("/api/v1/drivers/%s/location", driverID)
	return a.client.Do(ctx, http.MethodPost, path, body, nil)
}
