package domain

import dErrors "enrolldesk/pkg/domain-errors"

// Role is the caller role asserted by the identity gate. The lifecycle
// service re-checks it on every transition rather than trusting middleware
// alone, so any future entry point inherits the same authorization rule.
type Role string

// Supported caller roles.
const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RoleAdmin: true,
	RoleStaff: true,
}

// ParseRole constructs a Role from external input (JWT claim, request field).
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}
