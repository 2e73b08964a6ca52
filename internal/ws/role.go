package ws

import "fmt"

// Role is the subscriber category used to filter broadcast audiences.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
)

// ParseRole validates a role string from the subscribe URL. Unknown values
// are rejected rather than defaulted so a typo'd client does not silently
// land in the wrong audience.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleCustomer, RoleDriver:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleSet is a broadcast audience. An empty set means "everyone".
type RoleSet map[Role]struct{}

// Roles builds a RoleSet from its arguments.
func Roles(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Contains reports whether r is in the set. Every role is a member of the
// empty set.
func (s RoleSet) Contains(r Role) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[r]
	return ok
}

// Staff is the default audience for operational updates and alerts.
func Staff() RoleSet { return Roles(RoleAdmin, RoleManager) }
