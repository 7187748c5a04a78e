package enums

import "fmt"

// ActorRole distinguishes seller-dashboard users from back-office operators.
type ActorRole string

const (
	RoleSeller ActorRole = "seller"
	RoleAdmin  ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	RoleSeller,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
