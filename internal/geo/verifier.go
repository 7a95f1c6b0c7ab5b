// Package geo decides whether a reported position lies inside a station's geofence.
package geo

import (
	"math"
)

const earthRadiusMeters = 6_371_000.0

// Distance returns the great-circle distance in meters between a and b.
func Distance(a, b Position) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h a hair above 1 for antipodal points.
	h = math.Min(1, h)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Verify checks position against station. The raw distance is compared to
// the radius; the rounded distance is only for display.
func Verify(position Position, station Station) (Result, error) {
	if err := position.Validate(); err != nil {
		return Result{}, err
	}
	if err := station.Position.Validate(); err != nil {
		return Result{}, err
	}
	d := Distance(position, station.Position)
	return Result{
		WithinGeofence: d <= station.RadiusMeters,
		DistanceMeters: int(math.Round(d)),
	}, nil
}
