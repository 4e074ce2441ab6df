package core

// Role is the authorization label carried on a resolved identity.
type Role string

const (
	RoleAdmin              Role = "admin"
	RoleDoctor             Role = "doctor"
	RoleNurse              Role = "nurse"
	RolePatient            Role = "patient"
	RoleClinicStaff        Role = "clinic_staff"
	RoleOrganizationAdmin  Role = "organization_admin"
	RoleOrganizationMember Role = "organization_member"
	RoleSystemAdmin        Role = "system_admin"

	// Facility-specific roles referenced by individual routes.
	RoleSurgeon       Role = "surgeon"
	RoleORCoordinator Role = "or_coordinator"
	RoleAnalyst       Role = "analyst"
)

// DefaultRole is assigned when a verified token carries no role claim.
const DefaultRole = RolePatient

var allRoles = map[Role]struct{}{
	RoleAdmin:              {},
	RoleDoctor:             {},
	RoleNurse:              {},
	RolePatient:            {},
	RoleClinicStaff:        {},
	RoleOrganizationAdmin:  {},
	RoleOrganizationMember: {},
	RoleSystemAdmin:        {},
	RoleSurgeon:            {},
	RoleORCoordinator:      {},
	RoleAnalyst:            {},
}

// IsValid reports whether r is a member of the fixed role set.
func (r Role) IsValid() bool {
	_, ok := allRoles[r]
	return ok
}

// ParseRole maps a raw claim value to a Role, falling back to DefaultRole
// for empty or unknown values so a bad claim never widens access.
func ParseRole(raw string) Role {
	r := Role(raw)
	if !r.IsValid() {
		return DefaultRole
	}
	return r
}
