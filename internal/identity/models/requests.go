package models

import (
	"strings"
	"time"

	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

// RegisterRequest is the admin payload for creating an identity.
type RegisterRequest struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Department   string `json:"department"`
	SupervisorID string `json:"supervisor_id,omitempty"`
	ValidFrom    string `json:"valid_from,omitempty"`
	ValidUntil   string `json:"valid_until,omitempty"`
}

func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Department = strings.TrimSpace(r.Department)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Department == "" {
		return dErrors.New(dErrors.CodeValidation, "department is required")
	}
	if _, err := id.ParseRole(r.Role); err != nil {
		return dErrors.New(dErrors.CodeValidation, "role must be employee, intern or attache")
	}
	if r.SupervisorID != "" {
		if _, err := id.ParseIdentityID(r.SupervisorID); err != nil {
			return err
		}
	}
	if _, err := parseOptionalTime(r.ValidFrom); err != nil {
		return dErrors.New(dErrors.CodeValidation, "valid_from must be RFC3339 or YYYY-MM-DD")
	}
	if _, err := parseOptionalTime(r.ValidUntil); err != nil {
		return dErrors.New(dErrors.CodeValidation, "valid_until must be RFC3339 or YYYY-MM-DD")
	}
	return nil
}

// Command converts a validated request into service input.
func (r *RegisterRequest) Command() RegisterCommand {
	role, _ := id.ParseRole(r.Role)
	cmd := RegisterCommand{Name: r.Name, Role: role, Department: r.Department}
	if r.SupervisorID != "" {
		sup, _ := id.ParseIdentityID(r.SupervisorID)
		cmd.SupervisorID = &sup
	}
	if from, _ := parseOptionalTime(r.ValidFrom); from != nil {
		cmd.ValidFrom = *from
	}
	cmd.ValidUntil, _ = parseOptionalTime(r.ValidUntil)
	return cmd
}

type RegisterCommand struct {
	Name         string
	Role         id.Role
	Department   string
	SupervisorID *id.IdentityID
	ValidFrom    time.Time
	ValidUntil   *time.Time
}

func parseOptionalTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := id.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
