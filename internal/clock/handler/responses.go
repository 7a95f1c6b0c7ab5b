package handler

import (
	"time"

	"clockgate/internal/clock/models"
)

type SessionResponse struct {
	Phase          string     `json:"phase"`
	Station        string     `json:"station,omitempty"`
	DistanceMeters int        `json:"distance_meters"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
}

type LocationResponse struct {
	WithinGeofence bool            `json:"within_geofence"`
	DistanceMeters int             `json:"distance_meters"`
	Session        SessionResponse `json:"session"`
}

type RecordResponse struct {
	ID       string     `json:"id"`
	Station  string     `json:"station"`
	ClockIn  time.Time  `json:"clock_in"`
	ClockOut *time.Time `json:"clock_out,omitempty"`
	Status   string     `json:"status,omitempty"`
	Timing   string     `json:"timing,omitempty"`
	Hours    *float64   `json:"hours,omitempty"`
}

type AttemptResponse struct {
	Direction string          `json:"direction"`
	Record    RecordResponse  `json:"record"`
	Session   SessionResponse `json:"session"`
}

type RegistrationResponse struct {
	CredentialID string          `json:"credential_id"`
	CreatedAt    time.Time       `json:"created_at"`
	Session      SessionResponse `json:"session"`
}

func toSessionResponse(s *models.Session) SessionResponse {
	if s == nil {
		return SessionResponse{Phase: string(models.PhaseLocationUnverified)}
	}
	return SessionResponse{
		Phase:          string(s.Phase),
		Station:        s.Station.String(),
		DistanceMeters: s.DistanceMeters,
		VerifiedAt:     s.VerifiedAt,
	}
}

func toRecordResponse(result *models.AttemptResult) RecordResponse {
	rec := result.Record
	resp := RecordResponse{
		ID:       rec.ID.String(),
		Station:  rec.Station.String(),
		ClockIn:  rec.ClockIn,
		ClockOut: rec.ClockOut,
	}
	if c := rec.Classification; c != nil {
		resp.Status = string(c.Status)
		resp.Timing = string(c.Timing)
		hours := c.Hours
		resp.Hours = &hours
	}
	return resp
}
