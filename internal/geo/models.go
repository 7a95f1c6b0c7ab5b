package geo

import (
	"fmt"
	"math"
	"time"

	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

// Position is a client-reported WGS84 coordinate pair.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Position) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return dErrors.New(dErrors.CodeInvalidCoordinates, "coordinates must be finite numbers")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return dErrors.New(dErrors.CodeInvalidCoordinates, fmt.Sprintf("latitude %v out of range", p.Lat))
	}
	if p.Lng < -180 || p.Lng > 180 {
		return dErrors.New(dErrors.CodeInvalidCoordinates, fmt.Sprintf("longitude %v out of range", p.Lng))
	}
	return nil
}

// Station is immutable reference data: a workplace and its geofence.
type Station struct {
	Code          id.StationCode
	Name          string
	Position      Position
	RadiusMeters  float64
	ExpectedStart time.Duration // wall-clock time of day, as an offset from 00:00
	LateGrace     time.Duration
}

// LateCutoff is the latest clock-in on day that still counts as early. It is
// read off the local wall clock, so a daylight saving shift earlier in the
// day does not move it.
func (s Station) LateCutoff(day time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := day.In(loc)
	cutoff := s.ExpectedStart + s.LateGrace
	hour := int(cutoff / time.Hour)
	minute := int(cutoff % time.Hour / time.Minute)
	sec := int(cutoff % time.Minute / time.Second)
	nsec := int(cutoff % time.Second)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, sec, nsec, loc)
}

// Result is the outcome of a geofence check.
type Result struct {
	WithinGeofence bool `json:"within_geofence"`
	DistanceMeters int  `json:"distance_meters"`
}
