package domain

import "time"

// Role enumerates operational roles recognized by role storage.
type Role string

const (
	RoleDoctor       Role = "DOCTOR"
	RoleNurse        Role = "NURSE"
	RoleReceptionist Role = "RECEPTIONIST"
	RoleAdmin        Role = "ADMIN"
)

// StorageRoles is the closed set role storage accepts. RoleAdmin is assignable
// but never requestable through self-service.
var StorageRoles = map[Role]struct{}{
	RoleDoctor:       {},
	RoleNurse:        {},
	RoleReceptionist: {},
	RoleAdmin:        {},
}

// RequestableRoles is the intake enumeration for staff registration. It is
// intentionally wider than StorageRoles; see RoleShim.
var RequestableRoles = map[Role]struct{}{
	RoleDoctor:         {},
	RoleNurse:          {},
	RoleReceptionist:   {},
	Role("LAB_TECH"):   {},
	Role("PHARMACIST"): {},
	Role("CASHIER"):    {},
}

// IsRequestable reports whether the role is accepted at submission time.
func (r Role) IsRequestable() bool {
	_, ok := RequestableRoles[r]
	return ok
}

// IsStorageAccepted reports whether role storage recognizes the role.
func (r Role) IsStorageAccepted() bool {
	_, ok := StorageRoles[r]
	return ok
}

// RoleAssignment is the authoritative record that an identity is staff.
// Existence of a row is the sole authority for role-gated behavior.
type RoleAssignment struct {
	Identity  string
	Role      Role
	CreatedAt time.Time
}

// RoleShim is a declared compatibility mapping at the storage boundary: roles
// accepted at intake but not yet recognized by storage are coerced to the
// nearest accepted role, with an annotation preserving the original intent.
type RoleShim struct {
	nearest  map[Role]Role
	fallback Role
}

// DefaultRoleShim maps the current intake-only roles onto storage roles.
func DefaultRoleShim() *RoleShim {
	return &RoleShim{
		nearest: map[Role]Role{
			Role("LAB_TECH"):   RoleNurse,
			Role("PHARMACIST"): RoleNurse,
			Role("CASHIER"):    RoleReceptionist,
		},
		fallback: RoleReceptionist,
	}
}

// Coerce returns the storage-accepted role for requested, plus a non-empty
// annotation whenever the stored role differs from the requested one.
func (s *RoleShim) Coerce(requested Role) (Role, string) {
	if requested.IsStorageAccepted() {
		return requested, ""
	}
	accepted, ok := s.nearest[requested]
	if !ok {
		accepted = s.fallback
	}
	return accepted, "requested role " + string(requested) + " not yet supported; recorded as " + string(accepted) + ", manual reclassification required"
}
