package models

import (
	"time"

	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusHalfday Status = "halfday"
	// StatusAbsent is never stored; it marks expected days with no record.
	StatusAbsent Status = "absent"
)

type Timing string

const (
	TimingEarly Timing = "early"
	TimingLate  Timing = "late"
)

// Classification is derived once, when a record is sealed.
type Classification struct {
	Status Status  `json:"status"`
	Timing Timing  `json:"timing"`
	Hours  float64 `json:"hours"`
}

// Record is one clock-in/clock-out pair.
//
// Invariants:
//   - ClockOut and Classification are set together, at sealing
//   - A sealed record never changes
//   - An identity has at most one open record
type Record struct {
	ID             id.RecordID     `json:"id"`
	IdentityID     id.IdentityID   `json:"identity_id"`
	Station        id.StationCode  `json:"station"`
	ClockIn        time.Time       `json:"clock_in"`
	ClockOut       *time.Time      `json:"clock_out,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
}

func NewRecord(recordID id.RecordID, identityID id.IdentityID, station id.StationCode, clockIn time.Time) *Record {
	return &Record{
		ID:         recordID,
		IdentityID: identityID,
		Station:    station,
		ClockIn:    clockIn,
	}
}

func (r *Record) Sealed() bool {
	return r.ClockOut != nil
}

func (r *Record) CanSeal(clockOut time.Time) error {
	if r.Sealed() {
		return dErrors.New(dErrors.CodeInvalidState, "record already sealed")
	}
	if clockOut.Before(r.ClockIn) {
		return dErrors.New(dErrors.CodeInvariantViolation, "clock-out precedes clock-in")
	}
	return nil
}

func (r *Record) ApplySeal(clockOut time.Time, c Classification) {
	r.ClockOut = &clockOut
	r.Classification = &c
}
