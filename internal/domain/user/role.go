package user

import (
	"fmt"
	"strings"
)

// Role is the closed set of account kinds. Every switch over Role lists all three.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// SelfAssignable reports whether a user may pick this role at registration.
func (r Role) SelfAssignable() bool {
	switch r {
	case RoleStudent, RoleInstructor:
		return true
	case RoleAdmin:
		return false
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }
