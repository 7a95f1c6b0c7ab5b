// Package domain holds typed identifiers and small value objects shared by
// every bounded context. IDs are distinct types over uuid.UUID so an identity
// ID can never be passed where a device ID is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "clockgate/pkg/domain-errors"
)

type (
	IdentityID    uuid.UUID
	DeviceID      uuid.UUID
	LostRequestID uuid.UUID
	RecordID      uuid.UUID
	CredentialID  uuid.UUID
)

// StationCode identifies a station in the station catalogue.
type StationCode string

const maxStationCodeLen = 64

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return parsed, nil
}

func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parseUUID(s, "identity id")
	return IdentityID(u), err
}

func ParseDeviceID(s string) (DeviceID, error) {
	u, err := parseUUID(s, "device id")
	return DeviceID(u), err
}

func ParseLostRequestID(s string) (LostRequestID, error) {
	u, err := parseUUID(s, "lost device request id")
	return LostRequestID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record id")
	return RecordID(u), err
}

func ParseCredentialID(s string) (CredentialID, error) {
	u, err := parseUUID(s, "credential id")
	return CredentialID(u), err
}

// ParseStationCode normalizes a station code to lower case.
func ParseStationCode(s string) (StationCode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "station is required")
	}
	if len(s) > maxStationCodeLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "station code too long")
	}
	return StationCode(s), nil
}

func (id IdentityID) String() string    { return uuid.UUID(id).String() }
func (id DeviceID) String() string      { return uuid.UUID(id).String() }
func (id LostRequestID) String() string { return uuid.UUID(id).String() }
func (id RecordID) String() string      { return uuid.UUID(id).String() }
func (id CredentialID) String() string  { return uuid.UUID(id).String() }
func (c StationCode) String() string    { return string(c) }

func (id IdentityID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DeviceID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id LostRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func (id IdentityID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id DeviceID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id LostRequestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id RecordID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id CredentialID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *IdentityID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = IdentityID(u)
	return err
}

func (id *RecordID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = RecordID(u)
	return err
}

func (id *LostRequestID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = LostRequestID(u)
	return err
}

func (id *DeviceID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = DeviceID(u)
	return err
}

func (id *CredentialID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = CredentialID(u)
	return err
}
