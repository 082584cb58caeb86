// Package entity contains the core business objects of the project.
package entity

import "fmt"

// Role represents the type of role a profile can have in the system.
type Role string

const (
	// RoleAdmin is an agency staff member with access to every client.
	RoleAdmin Role = "admin"
	// RoleClient is a customer of the agency who sees only their own records.
	RoleClient Role = "client"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleClient:
		return true
	default:
		return false
	}
}

// ParseRole converts a stored value into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", &UnknownValueError{Field: "role", Value: s}
	}

	return role, nil
}

// UnknownValueError is returned when a stored enumeration holds a value outside its closed set.
type UnknownValueError struct {
	Field string
	Value string
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("unknown %s value %q", e.Field, e.Value)
}
