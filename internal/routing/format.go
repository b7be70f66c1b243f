package routing

import (
	"fmt"
	"math"
	"strconv"
)

const (
	metersPerKilometer = 1000.0
	feetPerMeter       = 3.28084
	feetPerMile        = 5280.0
)

// FormatDistance renders a metric distance for display: meters below 1 km,
// kilometers with the given decimal precision above. A negative precision
// falls back to the default of 1.
func FormatDistance(meters float64, precision int) string {
	if precision < 0 {
		precision = 1
	}
	if meters < metersPerKilometer {
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	}
	km := meters / metersPerKilometer
	return strconv.FormatFloat(km, 'f', precision, 64) + " km"
}

// FormatDistanceImperial renders a distance in feet below one mile and miles
// with the given decimal precision above.
func FormatDistanceImperial(meters float64, precision int) string {
	if precision < 0 {
		precision = 1
	}
	feet := meters * feetPerMeter
	if feet < feetPerMile {
		return fmt.Sprintf("%d ft", int(math.Round(feet)))
	}
	miles := feet / feetPerMile
	return strconv.FormatFloat(miles, 'f', precision, 64) + " mi"
}

// FormatDuration renders a duration in seconds for display: seconds below a
// minute, whole minutes below an hour, and "{h}h {m}m" above, omitting the
// minutes part when it is zero.
func FormatDuration(seconds float64) string {
	s := int(math.Round(seconds))
	if s < 60 {
		return fmt.Sprintf("%d sec", s)
	}
	if s < 3600 {
		return fmt.Sprintf("%d min", s/60)
	}
	hours := s / 3600
	minutes := (s % 3600) / 60
	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
