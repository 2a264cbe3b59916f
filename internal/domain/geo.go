package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadiusKm is the mean Earth radius used for distance calculations
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between two points
// using the Haversine formula. NaN inputs propagate as NaN.
func Distance(a, b Location) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// FormatDistance renders a distance in the "X.X km" display form
func FormatDistance(km float64) string {
	return fmt.Sprintf("%.1f km", km)
}

// ParseDistance parses a "X.X km" display string back into kilometers
func ParseDistance(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "km"))
	km, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(km) {
		return 0, false
	}
	return km, true
}
