package routing

import (
	"math"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
)

const earthRadiusMeters = 6371000.0

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// HaversineMeters calculates the great-circle distance in meters between two
// coordinates.
func HaversineMeters(from, to navigation.Coordinate) float64 {
	lat1 := degreesToRadians(from.Latitude)
	lat2 := degreesToRadians(to.Latitude)
	deltaLat := degreesToRadians(to.Latitude - from.Latitude)
	deltaLng := degreesToRadians(to.Longitude - from.Longitude)

	a := math.Pow(math.Sin(deltaLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(deltaLng/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
