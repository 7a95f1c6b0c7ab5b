package models

import (
	"strings"

	"clockgate/internal/biometric/models"
	"clockgate/internal/geo"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

// LocationRequest is the HTTP payload for POST /v1/clock/location.
type LocationRequest struct {
	Station   string   `json:"station"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r *LocationRequest) Validate() error {
	code, err := id.ParseStationCode(r.Station)
	if err != nil {
		return err
	}
	r.Station = code.String()
	if r.Latitude == nil || r.Longitude == nil {
		return dErrors.New(dErrors.CodeValidation, "latitude and longitude are required")
	}
	return nil
}

func (r *LocationRequest) Position() geo.Position {
	return geo.Position{Lat: *r.Latitude, Lng: *r.Longitude}
}

func (r *LocationRequest) StationCode() id.StationCode {
	return id.StationCode(r.Station)
}

// AttemptRequest is the HTTP payload for POST /v1/clock/attempts. Direction
// is optional; when set it must match what the session is ready for.
type AttemptRequest struct {
	Direction     string `json:"direction"`
	Challenge     string `json:"challenge"`
	CredentialRef string `json:"credential_id"`
	Signature     string `json:"signature"`

	signature []byte
}

func (r *AttemptRequest) Validate() error {
	r.Direction = strings.ToLower(strings.TrimSpace(r.Direction))
	if r.Direction != "" && !Direction(r.Direction).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "direction must be in or out")
	}
	r.Challenge = strings.TrimSpace(r.Challenge)
	r.CredentialRef = strings.TrimSpace(r.CredentialRef)
	if r.Challenge == "" || r.CredentialRef == "" {
		return dErrors.New(dErrors.CodeValidation, "challenge and credential_id are required")
	}
	sig, err := models.DecodeBinary(r.Signature)
	if err != nil || len(sig) == 0 {
		return dErrors.New(dErrors.CodeValidation, "signature must be base64url")
	}
	r.signature = sig
	return nil
}

func (r *AttemptRequest) Command(fingerprint string) AttemptCommand {
	return AttemptCommand{
		Direction:   Direction(r.Direction),
		Fingerprint: fingerprint,
		Assertion: models.AssertionResponse{
			Challenge:     r.Challenge,
			CredentialRef: r.CredentialRef,
			Signature:     r.signature,
		},
	}
}

// AttemptCommand is a clock attempt from the device identified by Fingerprint.
type AttemptCommand struct {
	Direction   Direction
	Fingerprint string
	Assertion   models.AssertionResponse
}
