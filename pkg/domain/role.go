package domain

import dErrors "clockgate/pkg/domain-errors"

// Role is the employment category of an identity.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleIntern   Role = "intern"
	RoleAttache  Role = "attache"
)

var validRoles = map[Role]bool{
	RoleEmployee: true,
	RoleIntern:   true,
	RoleAttache:  true,
}

func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

// RequiresSupervisor is true for interns and attachés.
func (r Role) RequiresSupervisor() bool {
	return r == RoleIntern || r == RoleAttache
}

func (r Role) String() string {
	return string(r)
}
