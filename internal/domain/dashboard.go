package domain

// Dashboard paths served by the web shell.
const (
	DashboardSuperAdmin   = "/superadmin"
	DashboardCompanyAdmin = "/companyadmin"
	DashboardTeamIncharge = "/teamincharge"
	DashboardTelecaller   = "/telecaller"
)

// DashboardPath is the landing path after login for role.
func DashboardPath(role Role) string {
	switch role {
	case RoleSuperAdmin:
		return DashboardSuperAdmin
	case RoleCompanyAdmin:
		return DashboardCompanyAdmin
	case RoleTeamIncharge:
		return DashboardTeamIncharge
	case RoleTelecaller:
		return DashboardTelecaller
	default:
		return "/"
	}
}

// CanAccessDashboard applies the role hierarchy: higher roles may open lower dashboards,
// the operator dashboard is SuperAdmin-only.
func CanAccessDashboard(role Role, dashboard string) bool {
	switch dashboard {
	case DashboardSuperAdmin:
		return role == RoleSuperAdmin
	case DashboardCompanyAdmin:
		return role == RoleSuperAdmin || role == RoleCompanyAdmin
	case DashboardTeamIncharge:
		return role == RoleSuperAdmin || role == RoleCompanyAdmin || role == RoleTeamIncharge
	case DashboardTelecaller:
		_, ok := ParseRole(string(role))
		return ok
	default:
		return false
	}
}
