package domain

// SessionIdentity is the minimal authenticated identity handed to the dashboards.
type SessionIdentity struct {
	PrincipalID string `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	TenantID    string `json:"tenantId,omitempty"`
	Email       string `json:"email,omitempty"`
}
