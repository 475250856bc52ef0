package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" companyadmin ")
	assert.True(t, ok)
	assert.Equal(t, RoleCompanyAdmin, r)

	_, ok = ParseRole("Manager")
	assert.False(t, ok)
}

func TestDashboardPath(t *testing.T) {
	assert.Equal(t, "/superadmin", DashboardPath(RoleSuperAdmin))
	assert.Equal(t, "/companyadmin", DashboardPath(RoleCompanyAdmin))
	assert.Equal(t, "/teamincharge", DashboardPath(RoleTeamIncharge))
	assert.Equal(t, "/telecaller", DashboardPath(RoleTelecaller))
	assert.Equal(t, "/", DashboardPath(Role("")))
}

func TestCanAccessDashboard(t *testing.T) {
	cases := []struct {
		role      Role
		dashboard string
		want      bool
	}{
		{RoleSuperAdmin, DashboardSuperAdmin, true},
		{RoleCompanyAdmin, DashboardSuperAdmin, false},
		{RoleSuperAdmin, DashboardCompanyAdmin, true},
		{RoleTeamIncharge, DashboardCompanyAdmin, false},
		{RoleCompanyAdmin, DashboardTeamIncharge, true},
		{RoleTelecaller, DashboardTeamIncharge, false},
		{RoleTelecaller, DashboardTelecaller, true},
		{RoleSuperAdmin, DashboardTelecaller, true},
		{Role("Guest"), DashboardTelecaller, false},
		{RoleSuperAdmin, "/reports", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanAccessDashboard(tc.role, tc.dashboard), "%s -> %s", tc.role, tc.dashboard)
	}
}

func TestLockout_LockedAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	until := now.Add(15 * time.Minute)

	assert.False(t, Lockout{}.LockedAt(now))
	assert.True(t, Lockout{LockedUntil: &until}.LockedAt(now))
	assert.False(t, Lockout{LockedUntil: &until}.LockedAt(until))
}

func TestLockout_AfterFailure(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	next := Lockout{FailedAttempts: 3}.AfterFailure(now, 5, window)
	assert.Equal(t, 4, next.FailedAttempts)
	assert.Nil(t, next.LockedUntil)

	next = Lockout{FailedAttempts: 4}.AfterFailure(now, 5, window)
	assert.Equal(t, 5, next.FailedAttempts)
	require.NotNil(t, next.LockedUntil)
	assert.True(t, next.LockedUntil.Equal(now.Add(window)))

	expired := now.Add(-time.Minute)
	next = Lockout{FailedAttempts: 5, LockedUntil: &expired}.AfterFailure(now, 5, window)
	assert.Equal(t, 1, next.FailedAttempts)
	assert.Nil(t, next.LockedUntil)

	open := now.Add(time.Minute)
	next = Lockout{FailedAttempts: 2, LockedUntil: &open}.AfterFailure(now, 5, window)
	assert.Equal(t, 3, next.FailedAttempts)
	require.NotNil(t, next.LockedUntil)
	assert.True(t, next.LockedUntil.Equal(open))
}

func TestEmployeeIdentity(t *testing.T) {
	e := &Employee{ID: "e1", TenantID: "t1", Name: "Ravi", EmpCode: "EMP001", Mobile: "9876543210", Role: RoleTelecaller}
	id := e.Identity()
	assert.Equal(t, "e1", id.PrincipalID)
	assert.Equal(t, "EMP001", id.Username)
	assert.Equal(t, RoleTelecaller, id.Role)
	assert.Equal(t, "t1", id.TenantID)
	assert.Empty(t, id.Email)
}

func TestOperatorIdentity_FallsBackToUsername(t *testing.T) {
	o := &Operator{ID: "o1", Username: "ops"}
	id := o.Identity()
	assert.Equal(t, "ops", id.Name)
	assert.Equal(t, RoleSuperAdmin, id.Role)
	assert.Empty(t, id.TenantID)
	assert.True(t, o.Active())
}
