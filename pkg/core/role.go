// Package core defines the domain types shared by every tandem component.
package core

import "fmt"

// Role identifies which front wheel a participant steers.
type Role int

const (
	RoleLeft Role = iota
	RoleRight
)

// Roles lists both roles in index order. VehicleState arrays are indexed by Role.
var Roles = [2]Role{RoleLeft, RoleRight}

// Other returns the complementary role.
func (r Role) Other() Role {
	if r == RoleLeft {
		return RoleRight
	}
	return RoleLeft
}

// Valid reports whether r is one of the two wheel roles.
func (r Role) Valid() bool {
	return r == RoleLeft || r == RoleRight
}

func (r Role) String() string {
	switch r {
	case RoleLeft:
		return "left"
	case RoleRight:
		return "right"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// MarshalText encodes the role as "left" or "right".
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes "left" or "right".
func (r *Role) UnmarshalText(b []byte) error {
	switch string(b) {
	case "left":
		*r = RoleLeft
	case "right":
		*r = RoleRight
	default:
		return fmt.Errorf("invalid role %q", string(b))
	}
	return nil
}

// ParticipantID is the stable identifier of a connected participant.
type ParticipantID string

// NoParticipant is the zero ParticipantID.
const NoParticipant ParticipantID = ""
