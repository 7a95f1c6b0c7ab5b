package models

import (
	"fmt"
	"time"

	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusGranted  Status = "granted"
	StatusRejected Status = "rejected"
)

// Decision is the responder's verdict on a pending request.
type Decision string

const (
	DecisionGranted  Decision = "granted"
	DecisionRejected Decision = "rejected"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionGranted, DecisionRejected:
		return Decision(s), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "decision must be granted or rejected")
	}
}

// Request asks for a time-bounded exception letting an identity clock in
// without a trusted device. Dates are calendar days at midnight UTC.
//
// Invariants:
//   - StartDate < EndDate and the window spans at most the configured days
//   - Status moves pending to granted or rejected exactly once
type Request struct {
	ID          id.LostRequestID `json:"id"`
	IdentityID  id.IdentityID    `json:"identity_id"`
	Fingerprint string           `json:"fingerprint"`
	Reason      string           `json:"reason"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     time.Time        `json:"end_date"`
	Status      Status           `json:"status"`
	ResponderID *id.IdentityID   `json:"responder_id,omitempty"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ValidateWindow checks a requested grant window against today's date.
func ValidateWindow(start, end, today time.Time, maxDays int) error {
	start, end, today = id.DateOf(start), id.DateOf(end), id.DateOf(today)
	if !end.After(start) {
		return dErrors.New(dErrors.CodeInvalidWindow, "end date must be after start date")
	}
	if span := id.DaysBetween(start, end); span > maxDays {
		return dErrors.New(dErrors.CodeInvalidWindow,
			fmt.Sprintf("window of %d days exceeds the maximum of %d", span, maxDays))
	}
	if start.Before(today) {
		return dErrors.New(dErrors.CodeInvalidWindow, "start date cannot be in the past")
	}
	return nil
}

func NewRequest(requestID id.LostRequestID, identityID id.IdentityID, fingerprint, reason string,
	start, end, now time.Time, maxDays int) (*Request, error) {
	if fingerprint == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "fingerprint is required")
	}
	if err := ValidateWindow(start, end, now, maxDays); err != nil {
		return nil, err
	}
	return &Request{
		ID:          requestID,
		IdentityID:  identityID,
		Fingerprint: fingerprint,
		Reason:      reason,
		StartDate:   id.DateOf(start),
		EndDate:     id.DateOf(end),
		Status:      StatusPending,
		CreatedAt:   now,
	}, nil
}

func (r *Request) CanRespond() error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeAlreadyResolved, "request already "+string(r.Status))
	}
	return nil
}

func (r *Request) ApplyDecision(decision Decision, responderID id.IdentityID, now time.Time) {
	r.Status = Status(decision)
	r.ResponderID = &responderID
	r.RespondedAt = &now
}

// Covers reports whether the request is a grant active on day. Both ends
// of the window are inclusive.
func (r *Request) Covers(day time.Time) bool {
	if r.Status != StatusGranted {
		return false
	}
	d := id.DateOf(day)
	return !d.Before(r.StartDate) && !d.After(r.EndDate)
}
