package auth

// staffManageable is the explicit carve-out for the staff role: reception
// personnel create and maintain dentist and patient accounts but can never
// touch managers, admins, or other staff. This is deliberately not
// level-based.
var staffManageable = []Role{RoleDentist, RolePatient}

// ManageableRoles returns the set of roles the requester is permitted to
// administer (create, edit, deactivate, delete, reset passwords). Admin may
// target every role including other admins. Staff get exactly the carve-out.
// Every other role may target roles strictly below its own level.
func ManageableRoles(requester Role) []Role {
	switch requester {
	case RoleAdmin:
		out := make([]Role, len(AllRoles))
		copy(out, AllRoles)
		return out
	case RoleStaff:
		out := make([]Role, len(staffManageable))
		copy(out, staffManageable)
		return out
	}
	level := Level(requester)
	if level == 0 {
		return nil
	}
	var out []Role
	for _, r := range AllRoles {
		if Level(r) < level {
			out = append(out, r)
		}
	}
	return out
}

// CheckPermission reports whether requester may administer an account with
// the target role. Unlike route authorisation this comparison is strict:
// a manager manages dentists but not other managers.
func CheckPermission(requester, target Role) bool {
	if !IsValidRole(requester) || !IsValidRole(target) {
		return false
	}
	switch requester {
	case RoleAdmin:
		return true
	case RoleStaff:
		for _, r := range staffManageable {
			if r == target {
				return true
			}
		}
		return false
	}
	return Level(requester) > Level(target)
}
