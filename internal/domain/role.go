package domain

import "strings"

// Role is the role tag carried by principals and sessions.
type Role string

const (
	RoleSuperAdmin   Role = "SuperAdmin"
	RoleCompanyAdmin Role = "CompanyAdmin"
	RoleTeamIncharge Role = "TeamIncharge"
	RoleTelecaller   Role = "Telecaller"
)

var allRoles = []Role{RoleSuperAdmin, RoleCompanyAdmin, RoleTeamIncharge, RoleTelecaller}

// ParseRole matches a role name case-insensitively.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	for _, r := range allRoles {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// TenantScoped reports whether the role requires a resolved tenant to log in.
func (r Role) TenantScoped() bool {
	return r != RoleSuperAdmin
}

// EmployeeRole reports whether the role belongs to the employees table.
func (r Role) EmployeeRole() bool {
	return r == RoleTeamIncharge || r == RoleTelecaller
}
