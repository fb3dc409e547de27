package geo

import (
	"math"

	"github.com/helperlink/dispatch/core/model"
)

const earthRadiusKm = 6371

// DistanceKm returns the great-circle distance between two points using the
// Haversine formula. Callers must validate coordinate presence themselves; a
// missing coordinate is a caller-side "cannot compute" case.
func DistanceKm(a, b model.Coordinate) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
