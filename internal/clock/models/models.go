package models

import (
	"time"

	attendance "clockgate/internal/attendance/models"
	"clockgate/internal/geo"
	id "clockgate/pkg/domain"
)

// Phase is where an identity's clock session stands.
type Phase string

const (
	PhaseLocationUnverified Phase = "location_unverified"
	PhaseLocationVerified   Phase = "location_verified"
	PhaseBiometricPending   Phase = "biometric_pending"
	PhaseReadyToClockIn     Phase = "ready_to_clock_in"
	PhaseReadyToClockOut    Phase = "ready_to_clock_out"
)

// Direction is the clock event an attempt produces.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

func (d Direction) IsValid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Session is the ephemeral per-identity clock state.
//
// Invariants:
//   - VerifiedAt is nil exactly when Phase is PhaseLocationUnverified
//   - Station is the station the location was last checked against
type Session struct {
	IdentityID     id.IdentityID  `json:"identity_id"`
	Phase          Phase          `json:"phase"`
	Station        id.StationCode `json:"station,omitempty"`
	Position       *geo.Position  `json:"position,omitempty"`
	DistanceMeters int            `json:"distance_meters"`
	VerifiedAt     *time.Time     `json:"verified_at,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func NewSession(identityID id.IdentityID, now time.Time) *Session {
	return &Session{
		IdentityID: identityID,
		Phase:      PhaseLocationUnverified,
		UpdatedAt:  now,
	}
}

// LocationFresh reports whether the last verified location is younger than ttl.
func (s *Session) LocationFresh(now time.Time, ttl time.Duration) bool {
	return s.VerifiedAt != nil && now.Before(s.VerifiedAt.Add(ttl))
}

// ApplyLocationFailure drops verification. A station change does the same
// before the new station is checked.
func (s *Session) ApplyLocationFailure(station id.StationCode, position geo.Position, distance int, now time.Time) {
	s.Phase = PhaseLocationUnverified
	s.Station = station
	s.Position = &position
	s.DistanceMeters = distance
	s.VerifiedAt = nil
	s.UpdatedAt = now
}

func (s *Session) ApplyLocationVerified(station id.StationCode, position geo.Position, distance int, now time.Time) {
	s.Phase = PhaseLocationVerified
	s.Station = station
	s.Position = &position
	s.DistanceMeters = distance
	s.VerifiedAt = &now
	s.UpdatedAt = now
}

// Advance moves a verified session to the phase its gates allow. It is a
// no-op outside PhaseLocationVerified and PhaseBiometricPending.
func (s *Session) Advance(hasOpenRecord, hasCredential bool, now time.Time) {
	if s.Phase != PhaseLocationVerified && s.Phase != PhaseBiometricPending {
		return
	}
	switch {
	case hasOpenRecord:
		s.Phase = PhaseReadyToClockOut
	case hasCredential:
		s.Phase = PhaseReadyToClockIn
	default:
		s.Phase = PhaseBiometricPending
	}
	s.UpdatedAt = now
}

// NextDirection is the clock event the session is ready for.
func (s *Session) NextDirection() (Direction, bool) {
	switch s.Phase {
	case PhaseReadyToClockIn:
		return DirectionIn, true
	case PhaseReadyToClockOut:
		return DirectionOut, true
	default:
		return "", false
	}
}

func (s *Session) ApplyClock(direction Direction, now time.Time) {
	if direction == DirectionIn {
		s.Phase = PhaseReadyToClockOut
	} else {
		s.Phase = PhaseReadyToClockIn
	}
	s.UpdatedAt = now
}

// AttemptResult is the outcome of an accepted clock attempt.
type AttemptResult struct {
	Direction Direction
	Record    *attendance.Record
	Session   *Session
}
