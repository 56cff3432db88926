package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5, Level(RoleAdmin))
	assert.Equal(t, 4, Level(RoleManager))
	assert.Equal(t, 3, Level(RoleDentist))
	assert.Equal(t, 2, Level(RoleStaff))
	assert.Equal(t, 1, Level(RolePatient))
	assert.Equal(t, 0, Level(Role("janitor")))
}

func TestAuthorize_StaffRouteAdmitsStaffAndAbove(t *testing.T) {
	t.Parallel()

	allowed := []Role{RoleStaff}
	for _, r := range []Role{RoleStaff, RoleDentist, RoleManager, RoleAdmin} {
		assert.True(t, Authorize(r, allowed), "role %s should reach a staff route", r)
	}
	assert.False(t, Authorize(RolePatient, allowed))
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requester Role
		allowed   []Role
		want      bool
	}{
		{name: "explicit member", requester: RolePatient, allowed: []Role{RolePatient}, want: true},
		{name: "higher role inherits patient route", requester: RoleAdmin, allowed: []Role{RolePatient}, want: true},
		{name: "patient denied dentist route", requester: RolePatient, allowed: []Role{RoleDentist}, want: false},
		{name: "staff denied manager route", requester: RoleStaff, allowed: []Role{RoleManager, RoleAdmin}, want: false},
		{name: "dentist reaches staff-or-dentist route", requester: RoleDentist, allowed: []Role{RoleStaff, RoleDentist}, want: true},
		// Documented inheritance rule: listing a low role opens the route
		// to everyone at or above its level, even alongside higher roles.
		{name: "mixed list takes the lowest bar", requester: RoleStaff, allowed: []Role{RolePatient, RoleAdmin}, want: true},
		{name: "empty allow-list denies", requester: RoleAdmin, allowed: nil, want: false},
		{name: "unknown requester denied", requester: Role("janitor"), allowed: []Role{RolePatient}, want: false},
		{name: "unknown allowed role ignored", requester: RolePatient, allowed: []Role{Role("janitor")}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Authorize(tt.requester, tt.allowed))
		})
	}
}
