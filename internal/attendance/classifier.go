// Package attendance classifies sealed clock-in/clock-out pairs. Record
// storage and history live in the store and service subpackages.
package attendance

import (
	"math"
	"time"

	"clockgate/internal/attendance/models"
	"clockgate/internal/geo"
	dErrors "clockgate/pkg/domain-errors"
)

// Classifier turns a sealed pair into status, timing and hours.
type Classifier struct {
	FullDayHours float64
	Location     *time.Location
}

func NewClassifier(fullDayHours float64, loc *time.Location) Classifier {
	if loc == nil {
		loc = time.UTC
	}
	return Classifier{FullDayHours: fullDayHours, Location: loc}
}

// Classify requires clockOut at or after clockIn. The late cutoff is the
// station's expected start plus grace on the clock-in's local day.
func (c Classifier) Classify(clockIn, clockOut time.Time, station geo.Station) (models.Classification, error) {
	if clockOut.Before(clockIn) {
		return models.Classification{}, dErrors.New(dErrors.CodeInvariantViolation, "clock-out precedes clock-in")
	}
	hours := RoundHours(clockOut.Sub(clockIn))

	status := models.StatusHalfday
	if hours >= c.FullDayHours {
		status = models.StatusPresent
	}
	timing := models.TimingEarly
	if clockIn.After(station.LateCutoff(clockIn, c.Location)) {
		timing = models.TimingLate
	}
	return models.Classification{Status: status, Timing: timing, Hours: hours}, nil
}

// RoundHours converts d to hours with two-decimal precision.
func RoundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}
