package types

import "fmt"

// Role is a marketplace participant role
type Role string

const (
	RoleClient     Role = "client"
	RoleLawyer     Role = "lawyer"
	RoleApprentice Role = "apprentice"
	RoleAdmin      Role = "admin"
)

// AllRoles returns all valid roles
func AllRoles() []Role {
	return []Role{RoleClient, RoleLawyer, RoleApprentice, RoleAdmin}
}

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleLawyer, RoleApprentice, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole parses a string into a Role. Matching is exact; the API sends lower case.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role: %s", s)
	}
	return role, nil
}
