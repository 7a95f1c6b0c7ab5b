package models

import (
	"strings"
	"time"

	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Identity is a person allowed to clock in once HR has approved them.
//
// Invariants:
//   - Interns and attachés always have a supervisor
//   - ValidUntil, when set, is after ValidFrom
//   - Status moves pending → active → inactive and never back
//   - Identities are never deleted
type Identity struct {
	ID           id.IdentityID  `json:"id"`
	Name         string         `json:"name"`
	Role         id.Role        `json:"role"`
	Department   string         `json:"department"`
	SupervisorID *id.IdentityID `json:"supervisor_id,omitempty"`
	Status       Status         `json:"status"`
	ValidFrom    time.Time      `json:"valid_from"`
	ValidUntil   *time.Time     `json:"valid_until,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ApprovedBy   *id.IdentityID `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time     `json:"approved_at,omitempty"`
}

// NewIdentity validates invariants and returns a pending identity.
func NewIdentity(identityID id.IdentityID, name string, role id.Role, department string,
	supervisor *id.IdentityID, validFrom time.Time, validUntil *time.Time, now time.Time) (*Identity, error) {
	name = strings.TrimSpace(name)
	department = strings.TrimSpace(department)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name is required")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name must be 128 characters or less")
	}
	if department == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "department is required")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	if role.RequiresSupervisor() && (supervisor == nil || supervisor.IsNil()) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "interns and attachés need a supervisor")
	}
	if supervisor != nil && *supervisor == identityID {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity cannot supervise itself")
	}
	if validFrom.IsZero() {
		validFrom = now
	}
	if validUntil != nil && !validUntil.After(validFrom) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "valid_until must be after valid_from")
	}
	return &Identity{
		ID:           identityID,
		Name:         name,
		Role:         role,
		Department:   department,
		SupervisorID: supervisor,
		Status:       StatusPending,
		ValidFrom:    validFrom,
		ValidUntil:   validUntil,
		CreatedAt:    now,
	}, nil
}

// IsEmployed reports whether the identity may clock at now.
func (i *Identity) IsEmployed(now time.Time) bool {
	if i.Status != StatusActive {
		return false
	}
	if now.Before(i.ValidFrom) {
		return false
	}
	if i.ValidUntil != nil && now.After(*i.ValidUntil) {
		return false
	}
	return true
}

func (i *Identity) CanApprove() error {
	if i.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "only pending identities can be approved")
	}
	return nil
}

func (i *Identity) ApplyApproval(approver id.IdentityID, now time.Time) {
	i.Status = StatusActive
	i.ApprovedBy = &approver
	i.ApprovedAt = &now
}

func (i *Identity) CanDeactivate() error {
	if i.Status == StatusInactive {
		return dErrors.New(dErrors.CodeInvalidState, "identity is already inactive")
	}
	return nil
}

func (i *Identity) ApplyDeactivation() {
	i.Status = StatusInactive
}
