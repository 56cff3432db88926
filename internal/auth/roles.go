package auth

// Role represents an authorisation tier in the clinic.
type Role string

const (
	// RoleAdmin has full control over the system, including other admins.
	RoleAdmin Role = "admin"

	// RoleManager runs the front office: scheduling, billing, staff accounts
	// below their own level.
	RoleManager Role = "manager"

	// RoleDentist is a practitioner account with access to clinical records.
	RoleDentist Role = "dentist"

	// RoleStaff is reception/assistant personnel. Staff administer dentist
	// and patient accounts only (see permissions.go).
	RoleStaff Role = "staff"

	// RolePatient is a self-service account with access to its own data.
	RolePatient Role = "patient"
)

// roleLevels ranks roles for route authorisation. Higher level means more
// privilege. The map is effectively immutable: it is populated once at
// process start and only ever read, so unsynchronised concurrent reads are
// safe.
var roleLevels = map[Role]int{
	RoleAdmin:   5,
	RoleManager: 4,
	RoleDentist: 3,
	RoleStaff:   2,
	RolePatient: 1,
}

// AllRoles lists every valid role, highest level first.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleDentist, RoleStaff, RolePatient}

// Level returns the hierarchy level for a role, or 0 for unknown roles.
func Level(r Role) int {
	return roleLevels[r]
}

// IsValidRole reports whether r is one of the known roles.
func IsValidRole(r Role) bool {
	_, ok := roleLevels[r]
	return ok
}

// Authorize decides whether requester may access a route restricted to the
// given roles. A requester is granted access when it is listed explicitly,
// or when its level is at least the minimum level among the allowed roles.
// Listing a role therefore implicitly opens the route to every higher role;
// routes meant for a single tier should list only that tier.
func Authorize(requester Role, allowed []Role) bool {
	if len(allowed) == 0 {
		return false
	}
	requesterLevel := Level(requester)
	if requesterLevel == 0 {
		return false
	}
	required := 0
	for _, r := range allowed {
		if r == requester {
			return true
		}
		lvl := Level(r)
		if lvl == 0 {
			continue // unknown roles never lower the bar
		}
		if required == 0 || lvl < required {
			required = lvl
		}
	}
	if required == 0 {
		return false
	}
	return requesterLevel >= required
}
